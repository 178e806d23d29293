package kidsAuth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DisableAccount marks an account inactive. Password, two-factor and
// federated logins are refused from then on. Sessions already issued stay
// valid until they expire.
func (e *Engine) DisableAccount(ctx context.Context, accountID string) error {
	err := e.setAccountStatus(ctx, accountID, StatusInactive)
	if err == nil {
		e.metricInc(MetricAccountDisabled)
	}
	return err
}

// EnableAccount marks an account active, including one that never redeemed
// its verification link.
func (e *Engine) EnableAccount(ctx context.Context, accountID string) error {
	return e.setAccountStatus(ctx, accountID, StatusActive)
}

func (e *Engine) setAccountStatus(ctx context.Context, accountID string, to AccountStatus) error {
	if err := e.ready(); err != nil {
		return err
	}

	account, err := e.accounts.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}
	from := account.Status
	if from == to {
		return nil
	}

	err = e.accounts.UpdateAccountStatus(ctx, accountID, to)
	if errors.Is(err, ErrRecordNotFound) {
		err = ErrAccountNotFound
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, accountID, "", err, func() map[string]string {
		return map[string]string{
			"from": string(from),
			"to":   string(to),
		}
	})
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("update status: %w", err)
	}
	return err
}

// DeleteAccount removes an account and, through the store, every profile it
// owns. Any outstanding two-factor code is discarded.
func (e *Engine) DeleteAccount(ctx context.Context, accountID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	err := e.accounts.DeleteAccount(ctx, accountID)
	if errors.Is(err, ErrRecordNotFound) {
		err = ErrAccountNotFound
	}
	e.emitAudit(ctx, auditEventAccountStatusChange, err == nil, accountID, "", err, func() map[string]string {
		return map[string]string{"action": "delete"}
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return err
		}
		return fmt.Errorf("delete account: %w", err)
	}

	if clearErr := e.challenges.ClearChallenge(ctx, accountID); clearErr != nil {
		e.logger.WarnContext(ctx, "challenge clear after account delete",
			slog.String("account_id", accountID),
			slog.Any("error", clearErr),
		)
	}
	e.metricInc(MetricAccountDeleted)
	return nil
}
