package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Failed-unlock cooldown thresholds: 5 failures block for 30 seconds,
// 10 for 5 minutes, 20 for 30 minutes. The counter resets on a successful
// unlock.
const (
	cooldownThreshold1 = 5
	cooldownThreshold2 = 10
	cooldownThreshold3 = 20

	cooldownDuration1 = 30 * time.Second
	cooldownDuration2 = 5 * time.Minute
	cooldownDuration3 = 30 * time.Minute
)

// lockState tracks failed unlock attempts for cooldown enforcement. It is
// stored as plaintext JSON next to the vault file: it protects nothing
// secret, it only throttles online guessing.
type lockState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	CooldownUntil  time.Time `json:"cooldown_until"`
}

func lockStatePath(vaultPath string) string {
	return vaultPath + ".lock"
}

func loadLockState(vaultPath string) (*lockState, error) {
	data, err := os.ReadFile(lockStatePath(vaultPath))
	if err != nil {
		if os.IsNotExist(err) {
			return &lockState{}, nil
		}
		return nil, fmt.Errorf("vault: failed to read lock state: %w", err)
	}

	var state lockState
	if err := json.Unmarshal(data, &state); err != nil {
		// Corrupted lock state resets the counter rather than blocking
		// the owner out of their own vault.
		return &lockState{}, nil
	}
	return &state, nil
}

func saveLockState(vaultPath string, state *lockState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("vault: failed to marshal lock state: %w", err)
	}
	if err := os.WriteFile(lockStatePath(vaultPath), data, fileMode); err != nil {
		return fmt.Errorf("vault: failed to write lock state: %w", err)
	}
	return nil
}

// clearLockState removes the lock state file (called on successful unlock).
func clearLockState(vaultPath string) error {
	err := os.Remove(lockStatePath(vaultPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: failed to clear lock state: %w", err)
	}
	return nil
}

// checkCooldown returns ErrCooldownActive and the remaining wait when a
// cooldown window is still open.
func checkCooldown(vaultPath string) (time.Duration, error) {
	state, err := loadLockState(vaultPath)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	if !state.CooldownUntil.IsZero() && now.Before(state.CooldownUntil) {
		return state.CooldownUntil.Sub(now), ErrCooldownActive
	}
	return 0, nil
}

// recordFailedAttempt bumps the failure counter and activates a cooldown
// when a threshold is crossed. It returns the cooldown duration activated
// by this attempt, or zero.
func recordFailedAttempt(vaultPath string) (time.Duration, error) {
	state, err := loadLockState(vaultPath)
	if err != nil {
		return 0, err
	}

	state.FailedAttempts++
	state.LastAttempt = time.Now()

	var cooldown time.Duration
	switch {
	case state.FailedAttempts >= cooldownThreshold3:
		cooldown = cooldownDuration3
	case state.FailedAttempts >= cooldownThreshold2:
		cooldown = cooldownDuration2
	case state.FailedAttempts >= cooldownThreshold1:
		cooldown = cooldownDuration1
	}
	if cooldown > 0 {
		state.CooldownUntil = time.Now().Add(cooldown)
	}

	if err := saveLockState(vaultPath, state); err != nil {
		return cooldown, err
	}
	return cooldown, nil
}
