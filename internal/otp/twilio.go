// Package otp wraps Twilio Verify for phone-number OTP send and check.
package otp

import (
	"errors"

	"finagg/internal/config"

	"github.com/twilio/twilio-go"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

var ErrVerificationFailed = errors.New("otp verification failed")

type Sender struct {
	client    *twilio.RestClient
	verifySID string
}

func NewSender(cfg config.TwilioConfig) *Sender {
	return &Sender{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		verifySID: cfg.VerifySID,
	}
}

func (s *Sender) Send(phone string) error {
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")
	_, err := s.client.VerifyV2.CreateVerification(s.verifySID, params)
	return err
}

func (s *Sender) Check(phone, code string) error {
	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)
	result, err := s.client.VerifyV2.CreateVerificationCheck(s.verifySID, params)
	if err != nil {
		return err
	}
	if result.Status == nil || *result.Status != "approved" {
		return ErrVerificationFailed
	}
	return nil
}
