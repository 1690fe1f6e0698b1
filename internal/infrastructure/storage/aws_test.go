package storage

import (
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// offlineSession signs requests with static credentials and never resolves
// the environment, so presigning works without network access.
func offlineSession(t *testing.T) *session.Session {
	t.Helper()

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String("ap-southeast-2"),
		Credentials: credentials.NewStaticCredentials("AKIDTEST", "secret", ""),
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}
