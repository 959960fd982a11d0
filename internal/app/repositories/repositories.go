package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/schoolportal/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository        *UserRepository
	TokenRepository       *TokenRepository
	OTPRepository         *OTPRepository
	AddressRepository     *AddressRepository
	StudentRepository     *StudentRepository
	ApplicationRepository *ApplicationRepository
	CourseRepository      *CourseRepository
	SubjectRepository     *SubjectRepository
	SectionRepository     *SectionRepository
	ScheduleRepository    *ScheduleRepository
	EnrollmentRepository  *EnrollmentRepository
	GradeRepository       *GradeRepository
	DocumentRepository    *DocumentRepository
	AdminLogRepository    *AdminLogRepository
	DashboardRepository   *DashboardRepository
}

// NewRepositories initializes all repositories
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		UserRepository:        NewUserRepository(database),
		TokenRepository:       NewTokenRepository(database),
		OTPRepository:         NewOTPRepository(database),
		AddressRepository:     NewAddressRepository(database),
		StudentRepository:     NewStudentRepository(database),
		ApplicationRepository: NewApplicationRepository(database),
		CourseRepository:      NewCourseRepository(database),
		SubjectRepository:     NewSubjectRepository(database),
		SectionRepository:     NewSectionRepository(database),
		ScheduleRepository:    NewScheduleRepository(database),
		EnrollmentRepository:  NewEnrollmentRepository(database),
		GradeRepository:       NewGradeRepository(database),
		DocumentRepository:    NewDocumentRepository(database),
		AdminLogRepository:    NewAdminLogRepository(database),
		DashboardRepository:   NewDashboardRepository(database),
	}
}

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// baseRepository carries the connection source and a Postgres flavoured squirrel builder
type baseRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

func newBaseRepository(database *db.PostgresDB) baseRepository {
	return baseRepository{
		db: database,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// conn returns the caller's transaction when there is one
func (r baseRepository) conn(ctx context.Context) db.DBTX {
	return r.db.Conn(ctx)
}

// countRows runs a prepared COUNT(*) query
func (r baseRepository) countRows(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int64
	if err := r.conn(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

// paginate applies offset/limit; a zero limit leaves the query unbounded
func paginate(q squirrel.SelectBuilder, offset, limit uint64) squirrel.SelectBuilder {
	if limit == 0 {
		return q
	}
	return q.Limit(limit).Offset(offset)
}

// likePattern escapes a user search term for ILIKE
func likePattern(search string) string {
	r := []rune{}
	for _, c := range search {
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return "%" + string(r) + "%"
}
