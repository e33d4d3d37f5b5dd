package store

import (
	"database/sql"
	"fmt"

	"github.com/mossrock/bramble/internal/model"
)

type BirthdayStore struct {
	db *sql.DB
}

func NewBirthdayStore(db *sql.DB) *BirthdayStore {
	return &BirthdayStore{db: db}
}

func scanBirthday(scanner interface{ Scan(...any) error }) (*model.Birthday, error) {
	var b model.Birthday
	err := scanner.Scan(&b.ID, &b.UserID, &b.Name, &b.Month, &b.Day, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const birthdayCols = `id, user_id, name, month, day, created_at, updated_at`

func (s *BirthdayStore) Create(userID int64, name string, month, day int) (*model.Birthday, error) {
	result, err := s.db.Exec(
		`INSERT INTO birthdays (user_id, name, month, day) VALUES (?, ?, ?, ?)`,
		userID, name, month, day,
	)
	if err != nil {
		return nil, fmt.Errorf("insert birthday: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *BirthdayStore) GetByID(id, userID int64) (*model.Birthday, error) {
	row := s.db.QueryRow(`SELECT `+birthdayCols+` FROM birthdays WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBirthday(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get birthday: %w", err)
	}
	return b, nil
}

func (s *BirthdayStore) ListByUser(userID int64) ([]model.Birthday, error) {
	rows, err := s.db.Query(
		`SELECT `+birthdayCols+` FROM birthdays WHERE user_id = ? ORDER BY month ASC, day ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list birthdays: %w", err)
	}
	defer rows.Close()

	var birthdays []model.Birthday
	for rows.Next() {
		b, err := scanBirthday(rows)
		if err != nil {
			return nil, fmt.Errorf("scan birthday: %w", err)
		}
		birthdays = append(birthdays, *b)
	}
	return birthdays, rows.Err()
}

func (s *BirthdayStore) Update(id, userID int64, name string, month, day int) (*model.Birthday, error) {
	_, err := s.db.Exec(
		`UPDATE birthdays SET name = ?, month = ?, day = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		name, month, day, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update birthday: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *BirthdayStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM birthdays WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete birthday: %w", err)
	}
	return nil
}
