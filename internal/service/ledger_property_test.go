// Property-based tests for the ledger rules: admin hierarchy, zero-delta
// rejection and transfer conservation.
package service

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// simulateAdjust mirrors the validation logic in LedgerService.AdjustPoints
// without database dependencies.
func simulateAdjust(actorLevel, targetLevel int, actorID, targetID, delta int64, actorIsOwner bool) error {
	if delta == 0 {
		return ErrZeroDelta
	}
	if targetID < 0 {
		return ErrBotTarget
	}
	if actorIsOwner {
		return nil
	}
	if actorLevel < 1 {
		return ErrNotAuthorized
	}
	if actorID == targetID {
		return ErrSelfTarget
	}
	if actorLevel <= targetLevel {
		return ErrHierarchyViolation
	}
	return nil
}

// An actor with level L can never modify a target of level >= L unless
// the actor is the designated owner.
func TestAdjustHierarchyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		actorLevel := rapid.IntRange(1, 5).Draw(t, "actorLevel")
		targetLevel := rapid.IntRange(actorLevel, 5).Draw(t, "targetLevel")
		actorID := rapid.Int64Range(1, 1000000).Draw(t, "actorID")
		targetID := rapid.Int64Range(1, 1000000).Filter(func(id int64) bool {
			return id != actorID
		}).Draw(t, "targetID")
		delta := rapid.Int64Range(1, 100000).Draw(t, "delta")

		err := simulateAdjust(actorLevel, targetLevel, actorID, targetID, delta, false)
		if !errors.Is(err, ErrHierarchyViolation) {
			t.Fatalf("expected hierarchy violation for actor=%d target=%d, got %v",
				actorLevel, targetLevel, err)
		}
	})
}

// The owner bypasses every hierarchy check, including self-targeting.
func TestAdjustOwnerBypassProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		actorLevel := rapid.IntRange(0, 5).Draw(t, "actorLevel")
		targetLevel := rapid.IntRange(0, 5).Draw(t, "targetLevel")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")
		delta := rapid.Int64Range(1, 100000).Draw(t, "delta")

		if err := simulateAdjust(actorLevel, targetLevel, userID, userID, delta, true); err != nil {
			t.Fatalf("owner adjustment should always pass, got %v", err)
		}
	})
}

func TestAdjustZeroDeltaRejected(t *testing.T) {
	err := simulateAdjust(5, 0, 1, 2, 0, false)
	if !errors.Is(err, ErrZeroDelta) {
		t.Fatalf("expected ErrZeroDelta, got %v", err)
	}
	// Even the owner cannot post a zero adjustment
	err = simulateAdjust(0, 5, 1, 1, 0, true)
	if !errors.Is(err, ErrZeroDelta) {
		t.Fatalf("expected ErrZeroDelta for owner, got %v", err)
	}
}

func TestAdjustBotTargetRejected(t *testing.T) {
	err := simulateAdjust(5, 0, 1, -42, 100, false)
	if !errors.Is(err, ErrBotTarget) {
		t.Fatalf("expected ErrBotTarget, got %v", err)
	}
}

// simulateTransfer mirrors the validation and execution logic in
// LedgerService.Transfer.
func simulateTransfer(senderBalance, receiverBalance, amount, senderID, receiverID int64) (int64, int64, error) {
	if amount <= 0 {
		return senderBalance, receiverBalance, ErrInvalidAmount
	}
	if senderID == receiverID {
		return senderBalance, receiverBalance, ErrSelfTarget
	}
	if receiverID < 0 {
		return senderBalance, receiverBalance, ErrBotTarget
	}
	if senderBalance < amount {
		return senderBalance, receiverBalance, ErrInsufficientBalance
	}
	return senderBalance - amount, receiverBalance + amount, nil
}

// For any successful transfer the sum of both balances is conserved, and
// a transfer never succeeds when the sender cannot cover it.
func TestTransferConservationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		senderBalance := rapid.Int64Range(0, 1000000).Draw(t, "senderBalance")
		receiverBalance := rapid.Int64Range(0, 1000000).Draw(t, "receiverBalance")
		amount := rapid.Int64Range(-100, 1000100).Draw(t, "amount")
		senderID := rapid.Int64Range(1, 1000000).Draw(t, "senderID")
		receiverID := rapid.Int64Range(1, 1000000).Draw(t, "receiverID")

		senderAfter, receiverAfter, err := simulateTransfer(
			senderBalance, receiverBalance, amount, senderID, receiverID)

		if err != nil {
			if senderAfter != senderBalance || receiverAfter != receiverBalance {
				t.Fatalf("failed transfer must not change balances")
			}
			return
		}

		if amount <= 0 || senderID == receiverID || senderBalance < amount {
			t.Fatalf("invalid transfer succeeded: balance=%d amount=%d", senderBalance, amount)
		}
		if senderAfter+receiverAfter != senderBalance+receiverBalance {
			t.Fatalf("conservation violated: before=%d after=%d",
				senderBalance+receiverBalance, senderAfter+receiverAfter)
		}
		if senderAfter != senderBalance-amount {
			t.Fatalf("sender balance mismatch: expected %d, got %d", senderBalance-amount, senderAfter)
		}
	})
}

// simulateSetLevel mirrors the validation in LedgerService.SetAdminLevel.
func simulateSetLevel(actorLevel, targetLevel, newLevel int, actorIsOwner bool) error {
	if newLevel < 0 || newLevel > 5 {
		return ErrLevelOutOfRange
	}
	if actorIsOwner {
		return nil
	}
	if actorLevel < 1 {
		return ErrNotAuthorized
	}
	if actorLevel <= targetLevel {
		return ErrHierarchyViolation
	}
	if newLevel >= actorLevel {
		return ErrHierarchyViolation
	}
	return nil
}

// An actor with level L can never set a target's level to >= L unless
// the actor is the owner.
func TestSetLevelCeilingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		actorLevel := rapid.IntRange(1, 5).Draw(t, "actorLevel")
		targetLevel := rapid.IntRange(0, actorLevel-1).Draw(t, "targetLevel")
		newLevel := rapid.IntRange(actorLevel, 5).Draw(t, "newLevel")

		err := simulateSetLevel(actorLevel, targetLevel, newLevel, false)
		if !errors.Is(err, ErrHierarchyViolation) {
			t.Fatalf("level %d actor granted level %d, expected rejection", actorLevel, newLevel)
		}

		if newLevel := rapid.IntRange(0, actorLevel-1).Draw(t, "grantable"); true {
			if err := simulateSetLevel(actorLevel, targetLevel, newLevel, false); err != nil {
				t.Fatalf("level %d actor should grant level %d, got %v", actorLevel, newLevel, err)
			}
		}
	})
}
