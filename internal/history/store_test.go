package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO conversation_history`).
		WithArgs("user1", "I have chest pain", true, "report_symptoms", []byte(`[{"name":"symptom","value":"chest pain"}]`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPostgresStore(db, nil)
	err = store.Append(context.Background(), Turn{
		SenderID: "user1",
		Text:     "I have chest pain",
		IsUser:   true,
		Intent:   "report_symptoms",
		Entities: []Entity{{Name: "symptom", Value: "chest pain"}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO conversation_history`).WillReturnError(assert.AnError)

	store := NewPostgresStore(db, nil)
	err = store.Append(context.Background(), Turn{SenderID: "user1", Text: "hi", IsUser: true})
	assert.Error(t, err)
}

func TestRecentReturnsChatOrder(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"sender_id", "message_text", "is_user", "intent", "entities", "created_at"}).
		AddRow("user1", "Here are cardiologists near you.", false, "", []byte(`[]`), now).
		AddRow("user1", "I have chest pain", true, "report_symptoms", []byte(`[]`), now.Add(-time.Minute))
	mock.ExpectQuery(`SELECT sender_id, message_text, is_user`).
		WithArgs("user1", 5).
		WillReturnRows(rows)

	store := NewPostgresStore(db, nil)
	turns, err := store.Recent(context.Background(), "user1", 5)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "I have chest pain", turns[0].Text, "oldest turn first")
	assert.False(t, turns[1].IsUser)
}

func TestRecentDefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT sender_id, message_text, is_user`).
		WithArgs("user1", 10).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "message_text", "is_user", "intent", "entities", "created_at"}))

	store := NewPostgresStore(db, nil)
	turns, err := store.Recent(context.Background(), "user1", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.NoError(t, mock.ExpectationsWereMet())
}
