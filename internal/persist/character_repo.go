package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MaxCharactersPerAccount caps the character list.
const MaxCharactersPerAccount = 3

var (
	ErrNameTaken        = errors.New("character name already taken")
	ErrCharacterLimit   = errors.New("account has reached the character limit")
	ErrCharacterMissing = errors.New("character not found")
)

// CharacterRecord is the durable shape of a character: progression, wallet,
// and last position. Derived values (max HP, attack power) are recomputed
// from definitions on load.
type CharacterRecord struct {
	ID        uint64
	AccountID int64
	Name      string
	ClassID   int32

	Level   int32
	XP      int64
	HP      int32
	MP      int32
	Str     int32
	Sta     int32
	Dex     int32
	Intel   int32
	Unspent int32
	Gold    int64

	ZoneID   int32
	X        float32
	Y        float32
	Z        float32
	Rotation float32
}

// CharacterRepo persists characters and their learned skills.
type CharacterRepo struct {
	db *DB
}

func NewCharacterRepo(db *DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

const characterColumns = `id, account_id, name, class_id, level, xp, hp, mp,
	str, sta, dex, intel, unspent, gold, zone_id, x, y, z, rotation`

func scanCharacter(row pgx.Row) (*CharacterRecord, error) {
	var c CharacterRecord
	err := row.Scan(&c.ID, &c.AccountID, &c.Name, &c.ClassID, &c.Level, &c.XP,
		&c.HP, &c.MP, &c.Str, &c.Sta, &c.Dex, &c.Intel, &c.Unspent, &c.Gold,
		&c.ZoneID, &c.X, &c.Y, &c.Z, &c.Rotation)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByAccount returns the account's live characters for the select screen.
func (r *CharacterRepo) ListByAccount(ctx context.Context, accountID int64) ([]*CharacterRecord, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+characterColumns+` FROM characters
		 WHERE account_id = $1 AND deleted_at IS NULL ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var result []*CharacterRecord
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Load fetches one character, refusing soft-deleted rows.
func (r *CharacterRepo) Load(ctx context.Context, charID uint64) (*CharacterRecord, error) {
	c, err := scanCharacter(r.db.Pool.QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters
		 WHERE id = $1 AND deleted_at IS NULL`, charID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCharacterMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load character %d: %w", charID, err)
	}
	return c, nil
}

// Create inserts a new character. The per-account cap and the unique name
// are both enforced inside one transaction so two parallel creates cannot
// race past either check.
func (r *CharacterRepo) Create(ctx context.Context, c *CharacterRecord) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx,
		`SELECT count(*) FROM characters
		 WHERE account_id = $1 AND deleted_at IS NULL FOR UPDATE`, c.AccountID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count characters: %w", err)
	}
	if count >= MaxCharactersPerAccount {
		return ErrCharacterLimit
	}

	var taken bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM characters WHERE lower(name) = lower($1) AND deleted_at IS NULL)`,
		c.Name).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if taken {
		return ErrNameTaken
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO characters
		 (account_id, name, class_id, level, xp, hp, mp, str, sta, dex, intel,
		  unspent, gold, zone_id, x, y, z, rotation)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		 RETURNING id`,
		c.AccountID, c.Name, c.ClassID, c.Level, c.XP, c.HP, c.MP,
		c.Str, c.Sta, c.Dex, c.Intel, c.Unspent, c.Gold,
		c.ZoneID, c.X, c.Y, c.Z, c.Rotation).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	return tx.Commit(ctx)
}

// Save writes progression and position back to the store. Inventory and gold
// never pass through here; they are written transactionally as they change.
func (r *CharacterRepo) Save(ctx context.Context, c *CharacterRecord) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET
		   level = $2, xp = $3, hp = $4, mp = $5,
		   str = $6, sta = $7, dex = $8, intel = $9, unspent = $10,
		   zone_id = $11, x = $12, y = $13, z = $14, rotation = $15,
		   updated_at = now()
		 WHERE id = $1`,
		c.ID, c.Level, c.XP, c.HP, c.MP,
		c.Str, c.Sta, c.Dex, c.Intel, c.Unspent,
		c.ZoneID, c.X, c.Y, c.Z, c.Rotation)
	if err != nil {
		return fmt.Errorf("save character %d: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterMissing
	}
	return nil
}

// SoftDelete hides a character from the list without destroying the row.
func (r *CharacterRepo) SoftDelete(ctx context.Context, accountID int64, charID uint64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE characters SET deleted_at = now()
		 WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL`,
		charID, accountID)
	if err != nil {
		return fmt.Errorf("delete character %d: %w", charID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterMissing
	}
	return nil
}

// LoadSkills returns the character's learned skills keyed by skill ID with
// the trained level.
func (r *CharacterRepo) LoadSkills(ctx context.Context, charID uint64) (map[uint32]int32, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT skill_id, level FROM character_skills WHERE character_id = $1`, charID)
	if err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	defer rows.Close()

	result := make(map[uint32]int32)
	for rows.Next() {
		var id uint32
		var level int32
		if err := rows.Scan(&id, &level); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		result[id] = level
	}
	return result, rows.Err()
}

// LearnSkill records a learned skill at the given level. The level only ever
// moves up, so a re-run of a level-up flush is harmless.
func (r *CharacterRepo) LearnSkill(ctx context.Context, charID uint64, skillID uint32, level int32) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO character_skills (character_id, skill_id, level)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (character_id, skill_id)
		 DO UPDATE SET level = GREATEST(character_skills.level, EXCLUDED.level)`,
		charID, skillID, level)
	if err != nil {
		return fmt.Errorf("learn skill: %w", err)
	}
	return nil
}
