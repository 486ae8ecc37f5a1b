package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const defaultSubject = "Your verification code"

// sesAPI is the subset of the SES v2 client used by SESSink.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES sink. Static credentials are optional; when
// empty the default AWS credential chain is used.
type SESConfig struct {
	Region          string
	From            string
	Subject         string
	AccessKeyID     string
	SecretAccessKey string
}

type SESSink struct {
	client  sesAPI
	from    string
	subject string
}

func NewSESSink(ctx context.Context, cfg SESConfig) (*SESSink, error) {
	if cfg.From == "" {
		return nil, errors.New("ses sink: from address is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return newSESSink(sesv2.NewFromConfig(awsCfg), cfg.From, cfg.Subject), nil
}

func newSESSink(client sesAPI, from, subject string) *SESSink {
	if subject == "" {
		subject = defaultSubject
	}
	return &SESSink{client: client, from: from, subject: subject}
}

func (s *SESSink) Send(ctx context.Context, destination, code string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{destination},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(s.subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(messageBody(code))},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending verification email: %w", err)
	}
	return nil
}

func messageBody(code string) string {
	return fmt.Sprintf("Your verification code is %s. It expires shortly, so use it soon.", code)
}
