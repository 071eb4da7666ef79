// internal/marketplace/admin.go
package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"realticket/internal/access"
	"realticket/internal/domain"
	"realticket/internal/settings"
)

func (s *service) HasRole(ctx context.Context, role access.Role, account domain.Address) (bool, error) {
	var ok bool
	err := s.read(func(st *state) error {
		if _, err := st.roles.MemberCount(role); err != nil {
			return err
		}
		ok = st.roles.HasRole(role, account)
		return nil
	})
	return ok, err
}

func (s *service) RoleMemberCount(ctx context.Context, role access.Role) (int, error) {
	var n int
	err := s.read(func(st *state) error {
		var err error
		n, err = st.roles.MemberCount(role)
		return err
	})
	return n, err
}

func (s *service) RoleMember(ctx context.Context, role access.Role, index int) (domain.Address, error) {
	var member domain.Address
	err := s.read(func(st *state) error {
		var err error
		member, err = st.roles.MemberAt(role, index)
		return err
	})
	return member, err
}

func (s *service) RoleMembers(ctx context.Context, role access.Role) ([]domain.Address, error) {
	var members []domain.Address
	err := s.read(func(st *state) error {
		var err error
		members, err = st.roles.Members(role)
		return err
	})
	return members, err
}

func (s *service) GrantRole(ctx context.Context, caller domain.Address, role access.Role, account domain.Address) error {
	return s.exec(ctx, "grant_role", caller, func(st *state) error {
		changed, err := st.roles.Grant(caller, role, account)
		if err != nil {
			return err
		}
		if changed {
			st.recordContract(EventRoleGranted, RoleEvent{Role: role, Account: account, By: caller})
		}
		return nil
	})
}

func (s *service) RevokeRole(ctx context.Context, caller domain.Address, role access.Role, account domain.Address) error {
	return s.exec(ctx, "revoke_role", caller, func(st *state) error {
		changed, err := st.roles.Revoke(caller, role, account)
		if err != nil {
			return err
		}
		if changed {
			st.recordContract(EventRoleRevoked, RoleEvent{Role: role, Account: account, By: caller})
		}
		return nil
	})
}

func (s *service) RenounceRole(ctx context.Context, caller domain.Address, role access.Role) error {
	return s.exec(ctx, "renounce_role", caller, func(st *state) error {
		changed, err := st.roles.Renounce(caller, role)
		if err != nil {
			return err
		}
		if changed {
			st.recordContract(EventRoleRevoked, RoleEvent{Role: role, Account: caller, By: caller})
		}
		return nil
	})
}

func (s *service) Settings(ctx context.Context) settings.Settings {
	var out settings.Settings
	_ = s.read(func(st *state) error {
		out = st.settings.Clone()
		return nil
	})
	return out
}

func (s *service) SetBaseFee(ctx context.Context, caller domain.Address, fee *big.Int) error {
	return s.updateSettings(ctx, "set_fee", caller, func(cur settings.Settings) (settings.Settings, error) {
		return cur.WithFee(fee)
	})
}

func (s *service) SetPrice(ctx context.Context, caller domain.Address, price *big.Int) error {
	return s.updateSettings(ctx, "set_price", caller, func(cur settings.Settings) (settings.Settings, error) {
		return cur.WithPrice(price)
	})
}

func (s *service) SetCapacity(ctx context.Context, caller domain.Address, capacity uint64) error {
	return s.updateSettings(ctx, "set_capacity", caller, func(cur settings.Settings) (settings.Settings, error) {
		return cur.WithCapacity(capacity), nil
	})
}

func (s *service) SetSettings(ctx context.Context, caller domain.Address, fee, price *big.Int, capacity uint64) error {
	return s.updateSettings(ctx, "set_settings", caller, func(settings.Settings) (settings.Settings, error) {
		return settings.New(fee, price, capacity)
	})
}

func (s *service) updateSettings(ctx context.Context, op string, caller domain.Address, change func(settings.Settings) (settings.Settings, error)) error {
	return s.exec(ctx, op, caller, func(st *state) error {
		if err := st.roles.Require(access.Admin, caller); err != nil {
			return err
		}
		next, err := change(st.settings)
		if err != nil {
			return err
		}
		st.settings = next
		st.recordContract(EventSettingsChanged, SettingsChangedEvent{
			BaseFee:   next.BaseFee.String(),
			BasePrice: next.BasePrice.String(),
			Capacity:  next.Capacity,
			By:        caller,
		})
		return nil
	})
}

// Withdraw pushes the whole treasury to recipient. Requires ADMIN. An empty treasury
// results in a zero-value withdrawal, not an error.
func (s *service) Withdraw(ctx context.Context, caller, recipient domain.Address) (*big.Int, error) {
	var amount *big.Int
	err := s.exec(ctx, "withdraw", caller, func(st *state) error {
		if err := st.roles.Require(access.Admin, caller); err != nil {
			return err
		}
		if recipient.IsZero() {
			return fmt.Errorf("%w: withdrawal recipient", domain.ErrInvalidAddress)
		}
		drained := st.treasury.Drain()
		if err := st.accounts.Pay(recipient, drained); err != nil {
			return err
		}
		st.recordContract(EventTreasuryWithdrawn, TreasuryWithdrawnEvent{Recipient: recipient, Amount: drained.String(), By: caller})
		amount = drained
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (s *service) TreasuryBalance(ctx context.Context) *big.Int {
	var bal *big.Int
	_ = s.read(func(st *state) error {
		bal = st.treasury.Balance()
		return nil
	})
	return bal
}

func (s *service) AccountBalance(ctx context.Context, account domain.Address) *big.Int {
	var bal *big.Int
	_ = s.read(func(st *state) error {
		bal = st.accounts.Balance(account)
		return nil
	})
	return bal
}

// Pause stops every ownership transfer. Requires MANAGER.
func (s *service) Pause(ctx context.Context, caller domain.Address) error {
	return s.exec(ctx, "pause", caller, func(st *state) error {
		if err := st.roles.Require(access.Manager, caller); err != nil {
			return err
		}
		if st.paused {
			return domain.ErrPaused
		}
		st.paused = true
		st.recordContract(EventPaused, PauseEvent{By: caller})
		return nil
	})
}

// Unpause resumes transfers. Requires MANAGER.
func (s *service) Unpause(ctx context.Context, caller domain.Address) error {
	return s.exec(ctx, "unpause", caller, func(st *state) error {
		if err := st.roles.Require(access.Manager, caller); err != nil {
			return err
		}
		if !st.paused {
			return domain.ErrNotPaused
		}
		st.paused = false
		st.recordContract(EventUnpaused, PauseEvent{By: caller})
		return nil
	})
}

func (s *service) Paused(ctx context.Context) bool {
	var paused bool
	_ = s.read(func(st *state) error {
		paused = st.paused
		return nil
	})
	return paused
}

func (s *service) Summary(ctx context.Context) Summary {
	var sum Summary
	_ = s.read(func(st *state) error {
		sum = Summary{
			Paused:      st.paused,
			Treasury:    st.treasury.Balance(),
			TotalMinted: st.tickets.Next(),
			Outstanding: st.tickets.Len(),
			Settings:    st.settings.Clone(),
		}
		return nil
	})
	return sum
}
