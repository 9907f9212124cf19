package notify

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type TwilioNotifier struct {
	api  messageCreator
	from string
	log  *logrus.Logger
}

var _ Notifier = (*TwilioNotifier)(nil)

func NewTwilioNotifier(log *logrus.Logger, accountSID, authToken, from string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{api: client.Api, from: from, log: log}
}

func (n *TwilioNotifier) Notify(_ context.Context, destination, message string) {
	if destination == "" {
		n.log.Warn("TwilioNotifier.Notify.noDestination")
		return
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(destination)
	params.SetFrom(n.from)
	params.SetBody(message)

	resp, err := n.api.CreateMessage(params)
	if err != nil {
		n.log.WithError(err).WithField("to", destination).Error("TwilioNotifier.Notify.failed")
		return
	}

	entry := n.log.WithField("to", destination)
	if resp != nil && resp.Sid != nil {
		entry = entry.WithField("sid", *resp.Sid)
	}
	entry.Info("TwilioNotifier.Notify.sent")
}
