package aws

import (
	"context"
	stderrors "errors"
	"testing"

	"vendor-onboarding/internal/common/errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSES struct{ mock.Mock }

func (m *mockSES) SendEmail(ctx context.Context, in *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*ses.SendEmailOutput)
	return out, args.Error(1)
}

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestSESClient_SendEmail(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		return awssdk.ToString(in.Source) == "noreply@portal.in" &&
			in.Destination.ToAddresses[0] == "ops@acme.in" &&
			awssdk.ToString(in.Message.Subject.Data) == "Welcome" &&
			in.Message.Body.Html == nil
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("msg-1")}, nil)

	client := NewSESClientFromAPI(api, "noreply@portal.in")
	id, err := client.SendEmail(context.Background(), Email{To: "ops@acme.in", Subject: "Welcome", TextBody: "hi"})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
	api.AssertExpectations(t)
}

func TestSESClient_SendEmailError(t *testing.T) {
	api := &mockSES{}
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, stderrors.New("throttled"))

	_, err := NewSESClientFromAPI(api, "noreply@portal.in").SendEmail(context.Background(), Email{To: "x@y.in"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalService))
}

func TestSNSClient_Publish(t *testing.T) {
	api := &mockSNS{}
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		attr, ok := in.MessageAttributes["eventType"]
		return ok && awssdk.ToString(attr.StringValue) == "VendorOnboarded" &&
			awssdk.ToString(in.TopicArn) == "arn:aws:sns:ap-south-1:1:vendors"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("sns-9")}, nil)

	client := NewSNSClientFromAPI(api, "arn:aws:sns:ap-south-1:1:vendors")
	id, err := client.Publish(context.Background(), "", `{"vendorId":"v-1"}`, map[string]string{"eventType": "VendorOnboarded"})

	require.NoError(t, err)
	assert.Equal(t, "sns-9", id)
	api.AssertExpectations(t)
}
