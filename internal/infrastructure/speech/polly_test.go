package speech

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"

	"WhereAmI/internal/config"
)

type fakePolly struct {
	pollyiface.PollyAPI
	input  *polly.SynthesizeSpeechInput
	stream io.ReadCloser
	err    error
}

func (f *fakePolly) SynthesizeSpeechWithContext(_ aws.Context, in *polly.SynthesizeSpeechInput, _ ...request.Option) (*polly.SynthesizeSpeechOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{AudioStream: f.stream}, nil
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	svc := &fakePolly{stream: io.NopCloser(strings.NewReader("ID3mp3"))}
	p := NewPolly(svc, config.SpeechConfig{})

	audio, err := p.Synthesize(context.Background(), "<speak>Welcome to Perth.</speak>", "Amy")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "ID3mp3" {
		t.Fatalf("unexpected audio: %q", audio)
	}

	in := svc.input
	if aws.StringValue(in.Engine) != "neural" || aws.StringValue(in.TextType) != "ssml" || aws.StringValue(in.OutputFormat) != "mp3" {
		t.Fatalf("unexpected synthesis settings: %+v", in)
	}
	if aws.StringValue(in.VoiceId) != "Amy" || aws.StringValue(in.Text) != "<speak>Welcome to Perth.</speak>" {
		t.Fatalf("unexpected synthesis input: %+v", in)
	}
}

func TestSynthesizeWithoutStream(t *testing.T) {
	t.Parallel()

	p := NewPolly(&fakePolly{}, config.SpeechConfig{Engine: "standard"})

	audio, err := p.Synthesize(context.Background(), "<speak>x</speak>", "Brian")
	if err != nil || audio != nil {
		t.Fatalf("expected nil audio, got %q, %v", audio, err)
	}
}

func TestSynthesizeError(t *testing.T) {
	t.Parallel()

	cause := errors.New("ThrottlingException")
	p := NewPolly(&fakePolly{err: cause}, config.SpeechConfig{})

	if _, err := p.Synthesize(context.Background(), "<speak>x</speak>", "Brian"); !errors.Is(err, cause) {
		t.Fatalf("expected the polly error, got %v", err)
	}
}
