package logger

import (
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go/aws"
)

// New returns a stdlib-backed logger with component prefix.
func New(component string) *log.Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile)
}

// AWS adapts a prefixed logger to the SDK's aws.Logger.
func AWS(component string) aws.Logger {
	l := New(component)
	return aws.LoggerFunc(func(args ...interface{}) {
		l.Println(args...)
	})
}
