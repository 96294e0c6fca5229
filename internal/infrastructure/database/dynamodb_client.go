package database

import (
	"context"

	appconfig "orderflow/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

// ConnectDynamoDB creates a DynamoDB client from the shared AWS config.
func ConnectDynamoDB(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

// NewAWSConfig builds the AWS config shared by the DynamoDB, SQS and SNS clients.
//
// Static credentials are always set: local emulators do not validate them, but the
// SDK requires some. Each service endpoint can be overridden independently
// (DYNAMODB_ENDPOINT, SQS_ENDPOINT, SNS_ENDPOINT).
func NewAWSConfig(ctx context.Context, c appconfig.AWS) (aws.Config, error) {
	creds := credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, "")

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(creds),
	}

	endpoints := map[string]string{}
	if c.DynamoDBEndpoint != "" {
		endpoints[dynamodb.ServiceID] = c.DynamoDBEndpoint
	}
	if c.SQSEndpoint != "" {
		endpoints[sqs.ServiceID] = c.SQSEndpoint
	}
	if c.SNSEndpoint != "" {
		endpoints[sns.ServiceID] = c.SNSEndpoint
	}

	if len(endpoints) > 0 {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if url, ok := endpoints[service]; ok {
				return aws.Endpoint{URL: url, SigningRegion: region, HostnameImmutable: true}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(resolver))
		log.Printf("[aws][config] custom endpoints services=%d region=%s", len(endpoints), c.Region)
	}

	return config.LoadDefaultConfig(ctx, loadOpts...)
}
