// Package wallet stores per-user wallet documents and implements the transaction write path and portfolio reads.
package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"grooby/docstore"
	"grooby/ledger"
)

// Wallet is the document stored under the wallet namespace. Tokens keeps first-transaction order and symbols
// are unique.
type Wallet struct {
	UserID string           `json:"userId"`
	Tokens []ledger.Holding `json:"tokens"`
}

// Holding returns the holding for symbol, or nil.
func (w *Wallet) Holding(symbol string) *ledger.Holding {
	for i := range w.Tokens {
		if w.Tokens[i].Symbol == symbol {
			return &w.Tokens[i]
		}
	}
	return nil
}

// load reads the wallet of uid as stored. A missing document yields an empty wallet at revision 0.
func load(ctx context.Context, docs docstore.Store, uid string) (Wallet, int64, error) {
	doc, err := docs.Get(ctx, docstore.Wallets, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return Wallet{UserID: uid}, 0, nil
	}
	if err != nil {
		return Wallet{}, 0, fmt.Errorf("failed to read wallet %s: %w", uid, err)
	}
	var w Wallet
	if err := json.Unmarshal(doc.Body, &w); err != nil {
		return Wallet{}, 0, fmt.Errorf("failed to decode wallet %s: %w", uid, err)
	}
	if w.UserID == "" {
		w.UserID = uid
	}
	return w, doc.Revision, nil
}

// save writes w over the revision it was read at.
func save(ctx context.Context, docs docstore.Store, w Wallet, revision int64) (int64, error) {
	body, err := json.Marshal(w)
	if err != nil {
		return 0, err
	}
	rev, err := docs.Put(ctx, docstore.Wallets, w.UserID, body, revision)
	if err != nil {
		if errors.Is(err, docstore.ErrConflict) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to write wallet %s: %w", w.UserID, err)
	}
	return rev, nil
}
