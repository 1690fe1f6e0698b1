package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/polly"
	"github.com/aws/aws-sdk-go/service/polly/pollyiface"

	"WhereAmI/internal/config"
	"WhereAmI/internal/ports"
)

// Polly synthesizes SSML with Amazon Polly.
type Polly struct {
	svc          pollyiface.PollyAPI
	engine       string
	outputFormat string
}

var _ ports.Synthesizer = (*Polly)(nil)

// NewPolly uses the neural engine and mp3 output unless cfg says otherwise.
func NewPolly(svc pollyiface.PollyAPI, cfg config.SpeechConfig) *Polly {
	p := &Polly{svc: svc, engine: cfg.Engine, outputFormat: cfg.OutputFormat}
	if p.engine == "" {
		p.engine = polly.EngineNeural
	}
	if p.outputFormat == "" {
		p.outputFormat = polly.OutputFormatMp3
	}
	return p
}

// Synthesize returns nil audio when Polly answers without a stream.
func (p *Polly) Synthesize(ctx context.Context, ssml, voiceID string) ([]byte, error) {
	out, err := p.svc.SynthesizeSpeechWithContext(ctx, &polly.SynthesizeSpeechInput{
		Engine:       aws.String(p.engine),
		TextType:     aws.String(polly.TextTypeSsml),
		Text:         aws.String(ssml),
		OutputFormat: aws.String(p.outputFormat),
		VoiceId:      aws.String(voiceID),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech with %s: %w", voiceID, err)
	}
	if out.AudioStream == nil {
		return nil, nil
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	return audio, nil
}
