package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BagSize is the number of inventory slots per character.
const BagSize = 40

var (
	ErrNotEnoughGold  = errors.New("not enough gold")
	ErrBagFull        = errors.New("inventory is full")
	ErrSlotEmpty      = errors.New("inventory slot is empty")
	ErrNotEnoughItems = errors.New("not enough items in slot")
)

// ItemSlot is one occupied bag slot.
type ItemSlot struct {
	Slot     int32
	ItemID   int32
	Amount   int32
	Enhance  int32
	Equipped bool
}

// InventoryRepo owns inventory and gold. Every mutation here is one
// transaction; these rows deliberately bypass the write-back cache so a
// crash can never duplicate or destroy items.
type InventoryRepo struct {
	db *DB
}

func NewInventoryRepo(db *DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

// Load returns the character's bag and current gold.
func (r *InventoryRepo) Load(ctx context.Context, charID uint64) ([]ItemSlot, int64, error) {
	var gold int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT gold FROM characters WHERE id = $1`, charID).Scan(&gold)
	if err != nil {
		return nil, 0, fmt.Errorf("load gold: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT slot, item_id, amount, enhance, equipped
		 FROM character_items WHERE character_id = $1 ORDER BY slot`, charID)
	if err != nil {
		return nil, 0, fmt.Errorf("load inventory: %w", err)
	}
	defer rows.Close()

	var slots []ItemSlot
	for rows.Next() {
		var s ItemSlot
		if err := rows.Scan(&s.Slot, &s.ItemID, &s.Amount, &s.Enhance, &s.Equipped); err != nil {
			return nil, 0, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, gold, rows.Err()
}

// VendorBuy deducts the price and grants the items atomically.
// Returns the new gold balance.
func (r *InventoryRepo) VendorBuy(ctx context.Context, charID uint64, itemID, amount, maxStack int32, unitPrice int64) (int64, error) {
	var newGold int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		total := unitPrice * int64(amount)
		if err := debitGold(ctx, tx, charID, total, &newGold); err != nil {
			return err
		}
		return grantItem(ctx, tx, charID, itemID, amount, maxStack)
	})
	return newGold, err
}

// VendorSell removes items from a slot and credits the proceeds atomically.
// Returns the new gold balance.
func (r *InventoryRepo) VendorSell(ctx context.Context, charID uint64, slot, amount int32, unitPrice int64) (int64, error) {
	var newGold int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := takeFromSlot(ctx, tx, charID, slot, amount, false); err != nil {
			return err
		}
		total := unitPrice * int64(amount)
		return tx.QueryRow(ctx,
			`UPDATE characters SET gold = gold + $2 WHERE id = $1 RETURNING gold`,
			charID, total).Scan(&newGold)
	})
	return newGold, err
}

// Equip marks the item in slot as worn, unequipping anything already worn in
// the same gear slot.
func (r *InventoryRepo) Equip(ctx context.Context, charID uint64, slot int32, sameSlotItems []int32) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var occupied bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM character_items
			  WHERE character_id = $1 AND slot = $2) `, charID, slot).Scan(&occupied)
		if err != nil {
			return fmt.Errorf("check slot: %w", err)
		}
		if !occupied {
			return ErrSlotEmpty
		}
		if len(sameSlotItems) > 0 {
			_, err = tx.Exec(ctx,
				`UPDATE character_items SET equipped = false
				 WHERE character_id = $1 AND equipped AND item_id = ANY($2)`,
				charID, sameSlotItems)
			if err != nil {
				return fmt.Errorf("unequip old: %w", err)
			}
		}
		_, err = tx.Exec(ctx,
			`UPDATE character_items SET equipped = true
			 WHERE character_id = $1 AND slot = $2`, charID, slot)
		if err != nil {
			return fmt.Errorf("equip: %w", err)
		}
		return nil
	})
}

// Unequip clears the worn flag for every listed item template.
func (r *InventoryRepo) Unequip(ctx context.Context, charID uint64, sameSlotItems []int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE character_items SET equipped = false
		 WHERE character_id = $1 AND equipped AND item_id = ANY($2)`,
		charID, sameSlotItems)
	if err != nil {
		return fmt.Errorf("unequip: %w", err)
	}
	return nil
}

// GrantLoot adds a picked-up drop (items and/or gold) atomically.
// Returns the new gold balance.
func (r *InventoryRepo) GrantLoot(ctx context.Context, charID uint64, itemID, amount, maxStack int32, gold int64) (int64, error) {
	var newGold int64
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if itemID != 0 {
			if err := grantItem(ctx, tx, charID, itemID, amount, maxStack); err != nil {
				return err
			}
		}
		return tx.QueryRow(ctx,
			`UPDATE characters SET gold = gold + $2 WHERE id = $1 RETURNING gold`,
			charID, gold).Scan(&newGold)
	})
	return newGold, err
}

func (r *InventoryRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// debitGold subtracts amount, failing without a write when the balance is
// short. The conditional UPDATE makes the check and the debit one statement.
func debitGold(ctx context.Context, tx pgx.Tx, charID uint64, amount int64, newGold *int64) error {
	err := tx.QueryRow(ctx,
		`UPDATE characters SET gold = gold - $2
		 WHERE id = $1 AND gold >= $2 RETURNING gold`,
		charID, amount).Scan(newGold)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotEnoughGold
	}
	if err != nil {
		return fmt.Errorf("debit gold: %w", err)
	}
	return nil
}

// grantItem stacks onto an existing pile when possible, otherwise takes the
// lowest free slot.
func grantItem(ctx context.Context, tx pgx.Tx, charID uint64, itemID, amount, maxStack int32) error {
	if maxStack > 1 {
		tag, err := tx.Exec(ctx,
			`UPDATE character_items SET amount = amount + $3
			 WHERE character_id = $1 AND item_id = $2 AND NOT equipped
			   AND amount + $3 <= $4`,
			charID, itemID, amount, maxStack)
		if err != nil {
			return fmt.Errorf("stack item: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
	}

	var slot int32
	err := tx.QueryRow(ctx,
		`SELECT s FROM generate_series(0, $2::int - 1) AS s
		 WHERE s NOT IN (SELECT slot FROM character_items WHERE character_id = $1)
		 ORDER BY s LIMIT 1`, charID, BagSize).Scan(&slot)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrBagFull
	}
	if err != nil {
		return fmt.Errorf("find free slot: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO character_items (character_id, slot, item_id, amount, enhance, equipped)
		 VALUES ($1, $2, $3, $4, 0, false)`, charID, slot, itemID, amount)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// takeFromSlot removes amount items from a slot, deleting the row when it
// empties. Equipped items cannot be taken unless allowEquipped is set.
func takeFromSlot(ctx context.Context, tx pgx.Tx, charID uint64, slot, amount int32, allowEquipped bool) error {
	var have int32
	var equipped bool
	err := tx.QueryRow(ctx,
		`SELECT amount, equipped FROM character_items
		 WHERE character_id = $1 AND slot = $2 FOR UPDATE`, charID, slot).Scan(&have, &equipped)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlotEmpty
	}
	if err != nil {
		return fmt.Errorf("lock slot: %w", err)
	}
	if equipped && !allowEquipped {
		return ErrSlotEmpty
	}
	if have < amount {
		return ErrNotEnoughItems
	}
	if have == amount {
		_, err = tx.Exec(ctx,
			`DELETE FROM character_items WHERE character_id = $1 AND slot = $2`, charID, slot)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE character_items SET amount = amount - $3
			 WHERE character_id = $1 AND slot = $2`, charID, slot, amount)
	}
	if err != nil {
		return fmt.Errorf("take from slot: %w", err)
	}
	return nil
}
