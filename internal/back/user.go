package back

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"moneyball/internal/util"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/guregu/null.v4"
)

// A User is a competitor identified by a short unique code (eg. initials on
// the office scoreboard) and a display nickname.
type User struct {
	ID           util.UUIDAsBlob
	CreatedAt    util.TimeAsTimestamp
	ShortName    string
	NickName     string
	PasswordHash string
	Company      null.String
}

func NewUser(shortName, nickName string) User {
	return User{
		ID:        util.NewUUIDAsBlob(),
		CreatedAt: util.TimeAsTimestamp(time.Now()),
		ShortName: strings.ToUpper(shortName),
		NickName:  nickName,
	}
}

func (u *User) SetPassword(clear string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(clear), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	u.PasswordHash = string(hash)

	return nil
}

func (u *User) CheckPassword(clear string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(clear)) == nil
}

func (u *User) insert(tx *sqlx.Tx) error {
	query, args, err := squirrel.Insert("User").SetMap(squirrel.Eq{
		"ID":           u.ID,
		"CreatedAt":    u.CreatedAt,
		"ShortName":    u.ShortName,
		"NickName":     u.NickName,
		"PasswordHash": u.PasswordHash,
		"Company":      u.Company,
	}).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func (u *User) update(tx *sqlx.Tx) error {
	query, args, err := squirrel.Update("User").SetMap(squirrel.Eq{
		"ShortName":    u.ShortName,
		"NickName":     u.NickName,
		"PasswordHash": u.PasswordHash,
		"Company":      u.Company,
	}).Where("User.ID = ?", u.ID).ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(query, args...); err != nil {
		return err
	}

	return nil
}

func getUserByID(tx *sqlx.Tx, id util.UUIDAsBlob) (User, error) {
	var ret User
	query := `SELECT * FROM User WHERE User.ID = ? LIMIT 1`
	if err := tx.Get(&ret, query, id); err != nil {
		return User{}, err
	}

	return ret, nil
}

func getUserByShortName(tx *sqlx.Tx, shortName string) (User, error) {
	var ret User
	query := `SELECT * FROM User WHERE User.ShortName = ? LIMIT 1`
	if err := tx.Get(&ret, query, strings.ToUpper(shortName)); err != nil {
		return User{}, err
	}

	return ret, nil
}

func getUserByNickName(tx *sqlx.Tx, nickName string) (User, error) {
	var ret User
	query := `SELECT * FROM User WHERE User.NickName = ? LIMIT 1`
	if err := tx.Get(&ret, query, nickName); err != nil {
		return User{}, err
	}

	return ret, nil
}

func getUsers(tx *sqlx.Tx) ([]User, error) {
	var ret []User
	if err := tx.Select(&ret, `SELECT * FROM User ORDER BY User.ShortName ASC`); err != nil {
		return nil, err
	}

	return ret, nil
}

// RegisterUser creates a new competitor and seeds their rating history with
// the default value of every rating kind, timestamped at registration.
func (b *Back) RegisterUser(shortName, nickName, password string, company null.String) (user User, _ error) {
	if len(shortName) < 2 || len(shortName) > 8 {
		return User{}, util.ErrValidation("your shortname must be between 2 and 8 characters")
	}

	if err := b.transaction(func(tx *sqlx.Tx) error {
		if _, err := getUserByShortName(tx, shortName); err == nil {
			return util.ErrValidation("this shortname is taken already")
		}

		if _, err := getUserByNickName(tx, nickName); err == nil {
			return util.ErrValidation("this nickname is taken already")
		}

		user = NewUser(shortName, nickName)
		user.Company = company
		if err := user.SetPassword(password); err != nil {
			return err
		}

		if err := user.insert(tx); err != nil {
			return err
		}

		return seedUserRatings(tx, user.ID, user.CreatedAt)
	}); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate checks a shortname/password pair and returns the matching
// user. Session handling is the caller's problem.
func (b *Back) Authenticate(shortName, password string) (user User, _ error) {
	if err := b.transaction(func(tx *sqlx.Tx) (err error) {
		user, err = getUserByShortName(tx, shortName)
		return err
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, util.ErrPermission("invalid shortname or password")
		}

		return User{}, err
	}

	if !user.CheckPassword(password) {
		return User{}, util.ErrPermission("invalid shortname or password")
	}

	return user, nil
}

func (b *Back) UpdateUser(u User) error {
	return b.transaction(u.update)
}
