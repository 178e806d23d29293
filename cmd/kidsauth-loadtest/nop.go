package main

import (
	"context"
	"time"

	kidsAuth "github.com/MrEthical07/kidsAuth"
)

// The validate phase never touches storage or delivery, so these collaborators
// only satisfy the builder.

type nopAccounts struct{}

func (nopAccounts) FindAccountByEmail(context.Context, string) (*kidsAuth.Account, error) {
	return nil, kidsAuth.ErrRecordNotFound
}

func (nopAccounts) FindAccountByID(context.Context, string) (*kidsAuth.Account, error) {
	return nil, kidsAuth.ErrRecordNotFound
}

func (nopAccounts) CreateAccount(context.Context, *kidsAuth.Account) error { return nil }
func (nopAccounts) DeleteAccount(context.Context, string) error { return nil }

func (nopAccounts) UpdateAccountStatus(context.Context, string, kidsAuth.AccountStatus) error {
	return nil
}

func (nopAccounts) UpdateAccountFields(context.Context, string, kidsAuth.AccountUpdate) error {
	return nil
}

func (nopAccounts) UpdatePasswordHash(context.Context, string, string) error { return nil }

type nopProfiles struct{}

func (nopProfiles) CreateProfile(context.Context, *kidsAuth.Profile) error { return nil }

func (nopProfiles) FindProfileByID(context.Context, string) (*kidsAuth.Profile, error) {
	return nil, kidsAuth.ErrRecordNotFound
}

func (nopProfiles) ListProfilesByOwner(context.Context, string) ([]kidsAuth.Profile, error) {
	return nil, nil
}

func (nopProfiles) UpdateProfile(context.Context, string, string, kidsAuth.ProfileUpdate) error {
	return nil
}

func (nopProfiles) DeleteProfile(context.Context, string, string) error { return nil }

type nopChallenges struct{}

func (nopChallenges) SetChallenge(context.Context, string, string, time.Time) error { return nil }

func (nopChallenges) ConsumeChallenge(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}

func (nopChallenges) ClearChallenge(context.Context, string) error { return nil }

type nopSender struct{}

func (nopSender) SendEmail(context.Context, string, string, string) error { return nil }

func (nopSender) SendSMS(context.Context, string, string) (string, error) { return "", nil }
