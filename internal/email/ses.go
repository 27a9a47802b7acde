package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/pauljasperdev/gemhog/internal/pkg/logger"
)

// SESSender delivers email through AWS SES using the SDK v2.
type SESSender struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	timeout   time.Duration
}

// NewSESSender creates an SES sender. Static credentials are used when
// provided; otherwise the default AWS credential chain applies (IAM role on
// ECS/Lambda).
func NewSESSender(ctx context.Context, fromEmail, fromName, region, accessKey, secretKey string, timeout time.Duration) (*SESSender, error) {
	if region == "" {
		region = "us-east-1"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESSender{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		timeout:   timeout,
	}, nil
}

// Send delivers a single message through SES. Extra headers (the
// List-Unsubscribe pair) ride on the simple message content.
func (s *SESSender) Send(ctx context.Context, msg *Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	message := &types.Message{
		Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
		Body: &types.Body{
			Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
		},
	}
	for name, value := range msg.Headers {
		message.Headers = append(message.Headers, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content:          &types.EmailContent{Simple: message},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("email sent", "to", msg.To, "message_id", messageID)

	return nil
}
