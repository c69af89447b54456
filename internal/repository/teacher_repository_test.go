package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

func TestTeacherRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "max_classes_per_day", "leave_count", "subject_ids", "created_at", "updated_at"}).
		AddRow("t1", "Teacher A", 4, 0, pq.StringArray{"s1"}, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, max_classes_per_day, leave_count, subject_ids, created_at, updated_at FROM teachers WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListFiltersBySubject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "max_classes_per_day", "leave_count", "subject_ids", "created_at", "updated_at"})
	mock.ExpectQuery(regexp.QuoteMeta("$1 = ANY(subject_ids)")).
		WithArgs("s1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	list, total, err := repo.List(context.Background(), models.TeacherFilter{SubjectID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateAndDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").
		WithArgs(sqlmock.AnyArg(), "Teacher A", 4, 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{Name: "Teacher A", MaxClassesPerDay: 4, SubjectIDs: pq.StringArray{"s1"}}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotEmpty(t, teacher.ID)

	mock.ExpectExec("DELETE FROM teachers").
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "max_classes_per_day", "leave_count", "subject_ids", "created_at", "updated_at"}).
		AddRow("t1", "Teacher A", 4, 0, pq.StringArray{}, time.Now(), time.Now()).
		AddRow("t2", "Teacher B", 2, 1, pq.StringArray{}, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE id IN ($1, $2) ORDER BY id")).
		WithArgs("t1", "t2").
		WillReturnRows(rows)

	teachers, err := repo.FindByIDs(context.Background(), []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Len(t, teachers, 2)
	assert.NoError(t, mock.ExpectationsWereMet())

	empty, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestTeacherRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE LOWER(name) = LOWER($1) LIMIT 1")).
		WithArgs("Teacher A").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Teacher A", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
