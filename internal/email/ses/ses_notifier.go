package ses

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"invox/internal/domain"
	"invox/internal/port"
)

type sesNotifier struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	frontendURL string
}

// NewSESNotifier creates a new SES-backed Notifier.
func NewSESNotifier(region, fromAddress, fromName, frontendURL string) (port.Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	client := sesv2.NewFromConfig(cfg)
	return &sesNotifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		frontendURL: frontendURL,
	}, nil
}

func (s *sesNotifier) SendExtractionFinished(ctx context.Context, toEmail string, inv *domain.Invoice) error {
	detailURL := fmt.Sprintf("%s/invoices/%s", s.frontendURL, inv.ID)

	var subject, outcome string
	switch inv.Status {
	case domain.StatusCompleted:
		subject = fmt.Sprintf("Invoice %q processed", inv.FileName)
		outcome = "was processed successfully"
	default:
		subject = fmt.Sprintf("Invoice %q failed to process", inv.FileName)
		outcome = "could not be processed"
	}

	textBody := fmt.Sprintf("Your invoice %s %s.\n\nView the result here:\n%s\n",
		inv.FileName, outcome, detailURL)
	htmlBody := buildFinishedHTML(inv, outcome, detailURL)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildFinishedHTML(inv *domain.Invoice, outcome, detailURL string) string {
	detail := ""
	if inv.Status == domain.StatusFailed && inv.ErrorMessage != "" {
		detail = fmt.Sprintf(`<p style="color: #b91c1c;">Reason: %s</p>`, inv.ErrorMessage)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Invoice processing finished</h2>
  <p>Your invoice <strong>%s</strong> %s.</p>
  %s
  <p style="text-align: center; margin: 30px 0;">
    <a href="%s" style="background-color: #4F46E5; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">View Invoice</a>
  </p>
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">Invox - Invoice Extraction Service</p>
</body>
</html>`, inv.FileName, outcome, detail, detailURL)
}
