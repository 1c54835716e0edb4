package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/logger"
)

// AccountChangesChannel is the NOTIFY channel fed by the accounts trigger.
const AccountChangesChannel = "account_changes"

// Changes holds one pooled connection in LISTEN mode for as long as ctx lives.
func (s *PgStore) Changes(ctx context.Context) (<-chan domain.AccountChange, error) {
	conn, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+AccountChangesChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	out := make(chan domain.AccountChange, 64)
	go func() {
		defer close(out)
		defer func() {
			if !conn.Conn().IsClosed() {
				_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			}
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Error("account change listener stopped", "error", err)
				}
				return
			}

			var change domain.AccountChange
			if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
				logger.Warn("bad account change payload", "payload", n.Payload, "error", err)
				continue
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
