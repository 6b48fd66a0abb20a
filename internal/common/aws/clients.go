package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SESService is the slice of the SES API the service uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the slice of the SNS API the service uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Clients struct {
	SES SESService
	SNS SNSService
}

// NewClients loads the default credential chain for region and builds the
// requested clients. Disabled services stay nil.
func NewClients(ctx context.Context, region string, withSES, withSNS bool) (*Clients, error) {
	clients := &Clients{}
	if !withSES && !withSNS {
		return clients, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	if withSES {
		clients.SES = ses.NewFromConfig(cfg)
	}
	if withSNS {
		clients.SNS = sns.NewFromConfig(cfg)
	}
	return clients, nil
}
