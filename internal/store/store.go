// Package store is the relational persistence layer for users, thumbnails
// and captions. Every method is a single self-contained GORM call set; no
// method depends on another method's transaction.
package store

import (
	"errors"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/you/tg-thumbnailer/internal/models"
)

// ErrNotFound is returned when the requested user, thumbnail or caption
// record does not exist.
var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

// Open connects to the database named by databaseURL and migrates the
// schema. postgres:// and postgresql:// select the Postgres driver;
// anything else is treated as a SQLite path (sqlite:///bot.db works).
func Open(databaseURL string) (*Store, error) {
	var dial gorm.Dialector
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dial = postgres.Open(databaseURL)
	default:
		dial = sqlite.Open(sqlitePath(databaseURL))
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.Thumbnail{}, &models.Caption{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// sqlitePath strips a sqlite:// scheme. Three slashes mean a relative path
// (sqlite:///bot.db -> bot.db), four an absolute one.
func sqlitePath(u string) string {
	if rest, ok := strings.CutPrefix(u, "sqlite://"); ok {
		return strings.TrimPrefix(rest, "/")
	}
	return u
}

// GetOrCreateUser returns the user record for userID, creating it with the
// given display hints on first contact. Repeated calls do not overwrite the
// stored display fields.
func (s *Store) GetOrCreateUser(userID int64, username, firstName, lastName string, admin bool) (models.User, error) {
	var u models.User
	err := s.db.Where(&models.User{UserID: userID}).
		Attrs(models.User{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
			IsAdmin:   admin,
			JoinDate:  time.Now().UTC(),
		}).
		FirstOrCreate(&u).Error
	return u, err
}

// User looks up a user by Telegram id.
func (s *Store) User(userID int64) (models.User, error) {
	var u models.User
	err := s.db.Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return u, ErrNotFound
	}
	return u, err
}

// IsBanned reports whether userID is banned. Unknown users are not banned.
func (s *Store) IsBanned(userID int64) bool {
	u, err := s.User(userID)
	return err == nil && u.IsBanned
}

// SaveThumbnail replaces the user's thumbnail. The upsert keys on the
// unique user_id index, so the old row is gone when this returns.
func (s *Store) SaveThumbnail(userID int64, fileRef string) error {
	t := models.Thumbnail{UserID: userID, FileRef: fileRef, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_ref", "created_at"}),
	}).Create(&t).Error
}

// Thumbnail returns the user's stored thumbnail, or ErrNotFound.
func (s *Store) Thumbnail(userID int64) (models.Thumbnail, error) {
	var t models.Thumbnail
	err := s.db.Where("user_id = ?", userID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return t, ErrNotFound
	}
	return t, err
}

// DeleteThumbnail removes the user's thumbnail; no-op if none is set.
func (s *Store) DeleteThumbnail(userID int64) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.Thumbnail{}).Error
}

// SaveCaption replaces the user's caption, same semantics as SaveThumbnail.
func (s *Store) SaveCaption(userID int64, text string) error {
	c := models.Caption{UserID: userID, CaptionText: text, CreatedAt: time.Now().UTC()}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"caption_text", "created_at"}),
	}).Create(&c).Error
}

// Caption returns the user's stored caption, or ErrNotFound.
func (s *Store) Caption(userID int64) (models.Caption, error) {
	var c models.Caption
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, ErrNotFound
	}
	return c, err
}

// DeleteCaption removes the user's caption; no-op if none is set.
func (s *Store) DeleteCaption(userID int64) error {
	return s.db.Where("user_id = ?", userID).Delete(&models.Caption{}).Error
}

// SetBanned flips the ban flag. ErrNotFound if the user was never seen.
func (s *Store) SetBanned(userID int64, banned bool) error {
	return s.setFlag(userID, "is_banned", banned)
}

// SetPremium flips the premium flag. ErrNotFound if the user was never seen.
func (s *Store) SetPremium(userID int64, premium bool) error {
	return s.setFlag(userID, "is_premium", premium)
}

func (s *Store) setFlag(userID int64, column string, value bool) error {
	res := s.db.Model(&models.User{}).Where("user_id = ?", userID).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats are the aggregate user counts behind the owner's /stats command.
type Stats struct {
	Total   int64
	Premium int64
	Banned  int64
}

func (s *Store) Stats() (Stats, error) {
	var st Stats
	if err := s.db.Model(&models.User{}).Count(&st.Total).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&models.User{}).Where("is_premium = ?", true).Count(&st.Premium).Error; err != nil {
		return st, err
	}
	if err := s.db.Model(&models.User{}).Where("is_banned = ?", true).Count(&st.Banned).Error; err != nil {
		return st, err
	}
	return st, nil
}
