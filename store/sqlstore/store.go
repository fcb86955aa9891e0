// Package sqlstore implements the grant and allocation ledgers on PostgreSQL, MySQL,
// and SQLite through database/sql.
//
// Amount columns hold base-10 strings and every update is guarded by a compare-and-swap
// on the value it read, so a lost race surfaces as store.ErrConflict on every dialect.
// PostgreSQL and MySQL additionally take row locks with SELECT ... FOR UPDATE.
//
// MySQL reports changed rows rather than matched rows. The engines never issue an
// update that leaves a row unchanged, so the compare-and-swap checks hold there too.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	tge "github.com/enjinstarter/enjinstarter-tge-contracts-sub001"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/store"
)

// Store is a SQL implementation of GrantStore and AllocationStore.
type Store struct {
	db      *sql.DB
	dialect Dialect

	grantsTable       string
	salesTable        string
	buyerLotsTable    string
	purchasesTable    string
	unpaidClaimsTable string
}

var (
	_ store.GrantStore      = (*Store)(nil)
	_ store.AllocationStore = (*Store)(nil)
)

// New creates a new SQL store with default table names.
func New(db *sql.DB, dialect Dialect) *Store {
	return NewWithConfig(db, dialect, DefaultTableConfig())
}

// NewWithConfig creates a new SQL store with custom table names.
func NewWithConfig(db *sql.DB, dialect Dialect, config TableConfig) *Store {
	return &Store{
		db:                db,
		dialect:           dialect,
		grantsTable:       config.GrantsTable,
		salesTable:        config.SalesTable,
		buyerLotsTable:    config.BuyerLotsTable,
		purchasesTable:    config.PurchasesTable,
		unpaidClaimsTable: config.UnpaidClaimsTable,
	}
}

// addressKey is the stored form of an address. Lowercase hex sorts in byte order.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func amountKey(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.Dec()
}

func parseAmount(s, column string) (*uint256.Int, error) {
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s %q: %w", column, s, err)
	}
	return x, nil
}

// q rebinds a query for the store's dialect.
func (s *Store) q(format string, args ...interface{}) string {
	return s.dialect.rebind(fmt.Sprintf(format, args...))
}

// mapTxError translates driver lock failures into store.ErrConflict.
func mapTxError(err error) error {
	if isRetryable(err) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

// CreateGrant persists a new grant.
// Returns tge.ErrDuplicateGrant if the beneficiary already has a grant.
func (s *Store) CreateGrant(ctx context.Context, grant tge.Grant) error {
	query := s.q(`
		INSERT INTO %s (vesting_id, beneficiary, total_amount, claimed_amount, start_time)
		VALUES (?, ?, ?, ?, ?)
	`, s.grantsTable)

	_, err := s.db.ExecContext(ctx, query,
		grant.VestingID,
		addressKey(grant.Beneficiary),
		amountKey(grant.TotalAmount),
		amountKey(grant.ClaimedAmount),
		grant.StartTime.Unix(),
	)
	if isDuplicateKey(err) {
		return tge.ErrDuplicateGrant
	}
	if err != nil {
		return fmt.Errorf("failed to create grant: %w", mapTxError(err))
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGrant(row scanner) (tge.Grant, error) {
	var (
		grant          tge.Grant
		beneficiary    string
		total, claimed string
		startUnix      int64
	)
	if err := row.Scan(&grant.VestingID, &beneficiary, &total, &claimed, &startUnix); err != nil {
		return tge.Grant{}, err
	}

	var err error
	grant.Beneficiary = common.HexToAddress(beneficiary)
	grant.StartTime = time.Unix(startUnix, 0).UTC()
	if grant.TotalAmount, err = parseAmount(total, "total_amount"); err != nil {
		return tge.Grant{}, err
	}
	if grant.ClaimedAmount, err = parseAmount(claimed, "claimed_amount"); err != nil {
		return tge.Grant{}, err
	}

	return grant, nil
}

// GetGrant returns the grant of a beneficiary.
// Returns tge.ErrGrantNotFound if the beneficiary has no grant.
func (s *Store) GetGrant(ctx context.Context, vestingID string, beneficiary common.Address) (tge.Grant, error) {
	query := s.q(`
		SELECT vesting_id, beneficiary, total_amount, claimed_amount, start_time
		FROM %s
		WHERE vesting_id = ? AND beneficiary = ?
	`, s.grantsTable)

	grant, err := scanGrant(s.db.QueryRowContext(ctx, query, vestingID, addressKey(beneficiary)))
	if err == sql.ErrNoRows {
		return tge.Grant{}, tge.ErrGrantNotFound
	}
	if err != nil {
		return tge.Grant{}, fmt.Errorf("failed to get grant: %w", err)
	}

	return grant, nil
}

// CompareAndSwapGrant replaces old with updated if the stored amounts still match old.
// Returns store.ErrConflict on a lost race and tge.ErrGrantNotFound if the grant is gone.
func (s *Store) CompareAndSwapGrant(ctx context.Context, old, updated tge.Grant) error {
	query := s.q(`
		UPDATE %s
		SET total_amount = ?, claimed_amount = ?
		WHERE vesting_id = ? AND beneficiary = ? AND total_amount = ? AND claimed_amount = ?
	`, s.grantsTable)

	result, err := s.db.ExecContext(ctx, query,
		amountKey(updated.TotalAmount),
		amountKey(updated.ClaimedAmount),
		old.VestingID,
		addressKey(old.Beneficiary),
		amountKey(old.TotalAmount),
		amountKey(old.ClaimedAmount),
	)
	if err != nil {
		return fmt.Errorf("failed to update grant: %w", mapTxError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetGrant(ctx, old.VestingID, old.Beneficiary); err != nil {
			return err
		}
		return store.ErrConflict
	}

	return nil
}

// ListGrants returns every grant of a vesting engine ordered by beneficiary.
func (s *Store) ListGrants(ctx context.Context, vestingID string) ([]tge.Grant, error) {
	query := s.q(`
		SELECT vesting_id, beneficiary, total_amount, claimed_amount, start_time
		FROM %s
		WHERE vesting_id = ?
		ORDER BY beneficiary
	`, s.grantsTable)

	rows, err := s.db.QueryContext(ctx, query, vestingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	grants := []tge.Grant{}
	for rows.Next() {
		grant, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	return grants, nil
}

// RecordUnpaidClaim appends a claim whose payout failed after it was recorded.
func (s *Store) RecordUnpaidClaim(ctx context.Context, claim tge.UnpaidClaim) error {
	query := s.q(`
		INSERT INTO %s (id, vesting_id, beneficiary, amount, claimed_at, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.unpaidClaimsTable)

	_, err := s.db.ExecContext(ctx, query,
		claim.ID,
		claim.VestingID,
		addressKey(claim.Beneficiary),
		amountKey(claim.Amount),
		claim.ClaimedAt.UnixNano(),
		claim.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to record unpaid claim: %w", mapTxError(err))
	}

	return nil
}

// ListUnpaidClaims returns the unpaid claims of a vesting engine in record order.
func (s *Store) ListUnpaidClaims(ctx context.Context, vestingID string) ([]tge.UnpaidClaim, error) {
	query := s.q(`
		SELECT id, vesting_id, beneficiary, amount, claimed_at, reason
		FROM %s
		WHERE vesting_id = ?
		ORDER BY seq
	`, s.unpaidClaimsTable)

	rows, err := s.db.QueryContext(ctx, query, vestingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid claims: %w", err)
	}
	defer rows.Close()

	claims := []tge.UnpaidClaim{}
	for rows.Next() {
		var (
			c                   tge.UnpaidClaim
			beneficiary, amount string
			claimedAt           int64
		)
		if err := rows.Scan(&c.ID, &c.VestingID, &beneficiary, &amount, &claimedAt, &c.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan unpaid claim: %w", err)
		}

		c.Beneficiary = common.HexToAddress(beneficiary)
		c.ClaimedAt = time.Unix(0, claimedAt).UTC()
		if c.Amount, err = parseAmount(amount, "amount"); err != nil {
			return nil, err
		}

		claims = append(claims, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unpaid claims: %w", err)
	}

	return claims, nil
}

// GetAllocation returns the sale's allocation totals.
func (s *Store) GetAllocation(ctx context.Context, saleID string) (tge.AllocationState, error) {
	query := s.q(`SELECT tokens_sold, closed FROM %s WHERE sale_id = ?`, s.salesTable)

	var (
		sold   string
		closed bool
	)
	err := s.db.QueryRowContext(ctx, query, saleID).Scan(&sold, &closed)
	if err == sql.ErrNoRows {
		return tge.AllocationState{SaleID: saleID, TokensSold: new(uint256.Int)}, nil
	}
	if err != nil {
		return tge.AllocationState{}, fmt.Errorf("failed to get allocation: %w", err)
	}

	tokensSold, err := parseAmount(sold, "tokens_sold")
	if err != nil {
		return tge.AllocationState{}, err
	}

	return tge.AllocationState{SaleID: saleID, TokensSold: tokensSold, Closed: closed}, nil
}

// LotsPurchased returns the lots a buyer has reserved in a sale.
func (s *Store) LotsPurchased(ctx context.Context, saleID string, buyer common.Address) (uint64, error) {
	query := s.q(`SELECT lots FROM %s WHERE sale_id = ? AND buyer = ?`, s.buyerLotsTable)

	var lots int64
	err := s.db.QueryRowContext(ctx, query, saleID, addressKey(buyer)).Scan(&lots)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get lots purchased: %w", err)
	}

	return uint64(lots), nil
}

// lockAllocation ensures the sale and buyer rows exist and reads them under lock.
func (s *Store) lockAllocation(ctx context.Context, tx *sql.Tx, saleID string, buyer string) (*uint256.Int, uint64, error) {
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.insertIgnore(s.salesTable, "sale_id", "tokens_sold")), saleID, "0"); err != nil {
		return nil, 0, fmt.Errorf("failed to initialize sale: %w", mapTxError(err))
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.insertIgnore(s.buyerLotsTable, "sale_id", "buyer", "lots")), saleID, buyer, 0); err != nil {
		return nil, 0, fmt.Errorf("failed to initialize buyer lots: %w", mapTxError(err))
	}

	var sold string
	query := s.q(`SELECT tokens_sold FROM %s WHERE sale_id = ?`, s.salesTable) + s.dialect.forUpdate()
	if err := tx.QueryRowContext(ctx, query, saleID).Scan(&sold); err != nil {
		return nil, 0, fmt.Errorf("failed to lock sale: %w", mapTxError(err))
	}

	var lots int64
	query = s.q(`SELECT lots FROM %s WHERE sale_id = ? AND buyer = ?`, s.buyerLotsTable) + s.dialect.forUpdate()
	if err := tx.QueryRowContext(ctx, query, saleID, buyer).Scan(&lots); err != nil {
		return nil, 0, fmt.Errorf("failed to lock buyer lots: %w", mapTxError(err))
	}

	tokensSold, err := parseAmount(sold, "tokens_sold")
	if err != nil {
		return nil, 0, err
	}

	return tokensSold, uint64(lots), nil
}

// swapAllocation writes new totals, guarded by the values read in lockAllocation.
func (s *Store) swapAllocation(ctx context.Context, tx *sql.Tx, saleID, buyer string, oldSold, newSold *uint256.Int, oldLots, newLots uint64) error {
	query := s.q(`UPDATE %s SET tokens_sold = ? WHERE sale_id = ? AND tokens_sold = ?`, s.salesTable)
	result, err := tx.ExecContext(ctx, query, newSold.Dec(), saleID, oldSold.Dec())
	if err != nil {
		return fmt.Errorf("failed to update tokens sold: %w", mapTxError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return store.ErrConflict
	}

	query = s.q(`UPDATE %s SET lots = ? WHERE sale_id = ? AND buyer = ? AND lots = ?`, s.buyerLotsTable)
	result, err = tx.ExecContext(ctx, query, int64(newLots), saleID, buyer, int64(oldLots))
	if err != nil {
		return fmt.Errorf("failed to update buyer lots: %w", mapTxError(err))
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	} else if n == 0 {
		return store.ErrConflict
	}

	return nil
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapTxError(err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapTxError(err))
	}

	return nil
}

// Reserve checks the lot limit and the cap and applies the reservation in one transaction.
func (s *Store) Reserve(ctx context.Context, saleID string, r store.Reservation) (tge.AllocationState, error) {
	buyer := addressKey(r.Buyer)
	var state tge.AllocationState

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		sold, held, err := s.lockAllocation(ctx, tx, saleID, buyer)
		if err != nil {
			return err
		}

		if r.Lots > r.MaxLots || held > r.MaxLots-r.Lots {
			return tge.ErrLotLimitExceeded
		}

		newSold, overflow := new(uint256.Int).AddOverflow(sold, r.Amount)
		if overflow || newSold.Gt(r.Cap) {
			return tge.ErrCapExceeded
		}

		if err := s.swapAllocation(ctx, tx, saleID, buyer, sold, newSold, held, held+r.Lots); err != nil {
			return err
		}

		state = tge.AllocationState{SaleID: saleID, TokensSold: newSold}
		return nil
	})
	if err != nil {
		return tge.AllocationState{}, err
	}

	return state, nil
}

// Release undoes a previous successful Reserve.
// Returns store.ErrReservationNotFound if the totals are smaller than the reservation.
func (s *Store) Release(ctx context.Context, saleID string, r store.Reservation) error {
	buyer := addressKey(r.Buyer)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		sold, held, err := s.lockAllocation(ctx, tx, saleID, buyer)
		if err != nil {
			return err
		}

		if held < r.Lots || sold.Lt(r.Amount) {
			return store.ErrReservationNotFound
		}

		newSold := new(uint256.Int).Sub(sold, r.Amount)
		return s.swapAllocation(ctx, tx, saleID, buyer, sold, newSold, held, held-r.Lots)
	})
}

// CloseSale marks the sale closed, creating its row if no purchase has touched it yet.
func (s *Store) CloseSale(ctx context.Context, saleID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.insertIgnore(s.salesTable, "sale_id", "tokens_sold")), saleID, "0"); err != nil {
			return fmt.Errorf("failed to initialize sale: %w", mapTxError(err))
		}

		query := s.q(`UPDATE %s SET closed = ? WHERE sale_id = ?`, s.salesTable)
		if _, err := tx.ExecContext(ctx, query, true, saleID); err != nil {
			return fmt.Errorf("failed to close sale: %w", mapTxError(err))
		}

		return nil
	})
}

// RecordPurchase appends a completed purchase to the sale's purchase log.
func (s *Store) RecordPurchase(ctx context.Context, receipt tge.Receipt) error {
	query := s.q(`
		INSERT INTO %s (id, sale_id, buyer, payment_token, payment_amount, payment_collected,
			payment_refunded, lots, token_amount, vested, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.purchasesTable)

	_, err := s.db.ExecContext(ctx, query,
		receipt.ID,
		receipt.SaleID,
		addressKey(receipt.Buyer),
		addressKey(receipt.PaymentToken),
		amountKey(receipt.PaymentAmount),
		amountKey(receipt.PaymentCollected),
		amountKey(receipt.PaymentRefunded),
		int64(receipt.Lots),
		amountKey(receipt.TokenAmount),
		receipt.Vested,
		receipt.PurchasedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", mapTxError(err))
	}

	return nil
}

// ListPurchases returns the sale's purchase log in purchase order.
func (s *Store) ListPurchases(ctx context.Context, saleID string) ([]tge.Receipt, error) {
	query := s.q(`
		SELECT id, sale_id, buyer, payment_token, payment_amount, payment_collected,
			payment_refunded, lots, token_amount, vested, purchased_at
		FROM %s
		WHERE sale_id = ?
		ORDER BY seq
	`, s.purchasesTable)

	rows, err := s.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	receipts := []tge.Receipt{}
	for rows.Next() {
		var (
			r                                   tge.Receipt
			buyer, token                        string
			amount, collected, refunded, tokens string
			lots, purchasedAt                   int64
		)
		if err := rows.Scan(&r.ID, &r.SaleID, &buyer, &token, &amount, &collected,
			&refunded, &lots, &tokens, &r.Vested, &purchasedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}

		r.Buyer = common.HexToAddress(buyer)
		r.PaymentToken = common.HexToAddress(token)
		r.Lots = uint64(lots)
		r.PurchasedAt = time.Unix(0, purchasedAt).UTC()

		for _, f := range []struct {
			dst    **uint256.Int
			src    string
			column string
		}{
			{&r.PaymentAmount, amount, "payment_amount"},
			{&r.PaymentCollected, collected, "payment_collected"},
			{&r.PaymentRefunded, refunded, "payment_refunded"},
			{&r.TokenAmount, tokens, "token_amount"},
		} {
			if *f.dst, err = parseAmount(f.src, f.column); err != nil {
				return nil, err
			}
		}

		receipts = append(receipts, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchases: %w", err)
	}

	return receipts, nil
}

