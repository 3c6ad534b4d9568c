package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedInterests = []string{"hiking", "cooking", "travel", "music", "reading", "football", "art", "coffee"}

// SeedTestData resets the database and populates it with demo users and likes.
//
// Behavior:
//  1. Clears existing data in every table.
//  2. Creates 20 users (10 male looking for female, 10 female looking for male).
//  3. Generates one-way likes (~70% of opposite-gender pairs sampled) and makes
//     every 3rd one reciprocal. Reciprocal pairs are left PENDING on purpose:
//     the reconciliation sweep turns them into matches with a channel.
//
// Compatible with both MySQL and SQLite (AUTO_INCREMENT reset skipped for SQLite).
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := clearAll(db); err != nil {
		return err
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE likes AUTO_INCREMENT = 1")
		db.Exec("ALTER TABLE users AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('likes', 'users')")
	}

	log.Println("Cleared existing data")

	// --- Seed Users (10 male, 10 female) ---
	for i := 1; i <= 20; i++ {
		gender, lookingFor := "MALE", "FEMALE"
		if i > 10 {
			gender, lookingFor = "FEMALE", "MALE"
		}

		user := User{
			Name:       fmt.Sprintf("user%d", i),
			Age:        20 + r.Intn(20),
			Bio:        "Tell us about yourself",
			Gender:     gender,
			LookingFor: EncodeSet([]string{lookingFor}),
			Location:   "London",
			Interests: EncodeSet([]string{
				seedInterests[r.Intn(len(seedInterests))],
				seedInterests[r.Intn(len(seedInterests))],
			}),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 20 users.")

	// --- Seed Likes ---
	counter := 0
	for likerID := uint64(1); likerID <= 20; likerID++ {
		for j := 0; j < 6; j++ {
			likeeID := uint64(r.Intn(20) + 1)
			if likerID == likeeID || (likerID <= 10) == (likeeID <= 10) {
				continue
			}
			if r.Intn(100) >= 70 {
				continue
			}

			if err := insertLike(db, likerID, likeeID); err != nil {
				return err
			}
			if counter%3 == 0 {
				if err := insertLike(db, likeeID, likerID); err != nil {
					return err
				}
			}
			counter++
		}
	}
	log.Printf("Seeded %d likes.", counter)

	return nil
}

// SeedMinimalTestData loads a small deterministic dataset.
//
//   - user1 (male) ↔ user2 (female): both liked, still PENDING
//   - user3 (female) → user1: one-way like, passed by user1
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearAll(db); err != nil {
		return err
	}

	users := []User{
		{ID: 1, Name: "user1", Age: 30, Gender: "MALE", LookingFor: EncodeSet([]string{"FEMALE"})},
		{ID: 2, Name: "user2", Age: 28, Gender: "FEMALE", LookingFor: EncodeSet([]string{"MALE"})},
		{ID: 3, Name: "user3", Age: 26, Gender: "FEMALE", LookingFor: EncodeSet([]string{"MALE"})},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	likes := []Like{
		{LikerID: 1, LikeeID: 2},
		{LikerID: 2, LikeeID: 1},
		{LikerID: 3, LikeeID: 1},
	}
	if err := db.Create(&likes).Error; err != nil {
		return err
	}
	return db.Create(&Pass{ActorID: 1, RecipientID: 3}).Error
}

func insertLike(db *gorm.DB, likerID, likeeID uint64) error {
	like := Like{LikerID: likerID, LikeeID: likeeID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "liker_id"}, {Name: "likee_id"}},
		DoNothing: true,
	}).Create(&like).Error
	if err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	return nil
}

func clearAll(db *gorm.DB) error {
	for _, table := range []string{"messages", "conversations", "passes", "likes", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}
