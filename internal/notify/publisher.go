// Package notify sends generated knowledge article drafts to reviewers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"case-assistant/internal/agent/payload"
	awsclient "case-assistant/internal/common/aws"
	apperrors "case-assistant/internal/common/errors"
	"case-assistant/internal/common/logger"
	"case-assistant/internal/common/metrics"
)

const (
	ChannelSNS   = "sns"
	ChannelEmail = "email"

	eventType = "knowledge_article_draft"
)

// Draft is a generated article plus the material it was written from.
type Draft struct {
	SessionID   string              `json:"sessionId"`
	Title       string              `json:"title"`
	Body        string              `json:"body"`
	ArticleData payload.ArticleData `json:"articleData"`
}

// Validate rejects drafts that have nothing to publish.
func (d Draft) Validate() error {
	if d.ArticleData.CaseData == nil {
		return apperrors.NewArticleDraftInvalidError("articleData.case_data is required")
	}
	if strings.TrimSpace(d.title()) == "" {
		return apperrors.NewArticleDraftInvalidError("draft has no title and the case has no subject")
	}
	return nil
}

func (d Draft) title() string {
	if d.Title != "" {
		return d.Title
	}
	return d.ArticleData.TitleHint
}

type Config struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

// Publisher fans a draft out to an SNS topic and an SES email. A channel is
// active when its client and its target are both configured.
type Publisher struct {
	cfg    Config
	ses    awsclient.SESService
	sns    awsclient.SNSService
	logger logger.Logger
}

func NewPublisher(cfg Config, clients *awsclient.Clients, log logger.Logger) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "article-publisher"}),
	}
	if clients != nil {
		p.ses = clients.SES
		p.sns = clients.SNS
	}
	return p
}

// Channels lists the channels a draft would go to.
func (p *Publisher) Channels() []string {
	var channels []string
	if p.sns != nil && p.cfg.TopicARN != "" {
		channels = append(channels, ChannelSNS)
	}
	if p.ses != nil && p.cfg.FromEmail != "" && len(p.cfg.Recipients) > 0 {
		channels = append(channels, ChannelEmail)
	}
	return channels
}

// Publish sends the draft on every active channel and returns the ones that
// succeeded. The first failure stops publication.
func (p *Publisher) Publish(ctx context.Context, draft Draft) ([]string, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	sent := []string{}
	for _, channel := range p.Channels() {
		var err error
		switch channel {
		case ChannelSNS:
			err = p.publishSNS(ctx, draft)
		case ChannelEmail:
			err = p.sendEmail(ctx, draft)
		}
		if err != nil {
			p.logger.WithError(err).Error("Article draft publication failed", map[string]interface{}{
				"channel":   channel,
				"sessionId": draft.SessionID,
			})
			return sent, apperrors.NewNotificationSendFailedError(channel, err)
		}

		metrics.ArticleDraftsPublished.WithLabelValues(channel).Inc()
		sent = append(sent, channel)
	}

	p.logger.Info("Article draft published", map[string]interface{}{
		"sessionId":  draft.SessionID,
		"caseNumber": draft.ArticleData.CaseData.CaseNumber,
		"channels":   sent,
	})
	return sent, nil
}

func (p *Publisher) publishSNS(ctx context.Context, draft Draft) error {
	message, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	_, err = p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.cfg.TopicARN),
		Subject:  aws.String(truncate(subjectLine(draft), 100)),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(eventType),
			},
			"case_number": {
				DataType:    aws.String("String"),
				StringValue: aws.String(orDash(draft.ArticleData.CaseData.CaseNumber)),
			},
		},
	})
	return err
}

func (p *Publisher) sendEmail(ctx context.Context, draft Draft) error {
	_, err := p.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: p.cfg.Recipients,
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subjectLine(draft))},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(RenderText(draft))},
			},
		},
		Source: aws.String(p.cfg.FromEmail),
	})
	return err
}

func subjectLine(draft Draft) string {
	return "Knowledge article draft: " + draft.title()
}

// RenderText lays the draft out as plain text for reviewers.
func RenderText(draft Draft) string {
	data := draft.ArticleData.CaseData

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", draft.title())
	fmt.Fprintf(&b, "Case: %s (%s)\n", orDash(data.CaseNumber), orDash(data.Status))
	if draft.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", draft.SessionID)
	}

	if strings.TrimSpace(draft.Body) != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(draft.Body))
		b.WriteString("\n")
	}

	if data.Description != "" {
		b.WriteString("\nProblem description:\n")
		b.WriteString(data.Description)
		b.WriteString("\n")
	}

	if len(draft.ArticleData.ConversationHistory) > 0 {
		b.WriteString("\nConversation:\n")
		for i, qa := range draft.ArticleData.ConversationHistory {
			fmt.Fprintf(&b, "%d. Q: %s\n", i+1, qa.Q)
			if qa.A != "" {
				fmt.Fprintf(&b, "   A: %s\n", qa.A)
			}
		}
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
