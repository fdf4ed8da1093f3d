package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/yigit/coursehub/internal/app/auth"
	"github.com/yigit/coursehub/internal/app/models"
	"github.com/yigit/coursehub/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursehub/internal/pkg/auth"
	"github.com/yigit/coursehub/internal/pkg/filestorage"
	"github.com/yigit/coursehub/internal/pkg/helpers"
	"golang.org/x/crypto/bcrypt"
)

// memDB is an in-memory stand-in for the relational store shared by the
// mock repositories below.
type memDB struct {
	mu          sync.Mutex
	nextID      int64
	users       map[int64]*models.User
	courses     map[int64]*models.Course
	assignments map[int64]*models.Assignment
	submissions map[int64]*models.Submission
	enrolled    map[[2]int64]bool

	applyErr      error
	submissionErr error
}

func newMemDB() *memDB {
	return &memDB{
		nextID:      1000,
		users:       map[int64]*models.User{},
		courses:     map[int64]*models.Course{},
		assignments: map[int64]*models.Assignment{},
		submissions: map[int64]*models.Submission{},
		enrolled:    map[[2]int64]bool{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func sortedKeys[V any](in map[int64]V) []int64 {
	keys := make([]int64, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func page[T any](items []T, p helpers.PageRequest) []T {
	out := []T{}
	start := int(p.Offset())
	if start >= len(items) {
		return out
	}
	end := start + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return append(out, items[start:end]...)
}

type memUsers struct{ *memDB }

func (m memUsers) insert(u *models.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	u.ID = m.id()
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(u)
}

func (m memUsers) CreateInitialAdmin(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.RoleType == models.RoleAdmin {
			return apperrors.ErrAdminAlreadyExists
		}
	}
	u.RoleType = models.RoleAdmin
	return m.insert(u)
}

func (m memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (m memUsers) ListCourseIDs(_ context.Context, u *models.User) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int64{}
	for _, id := range sortedKeys(m.courses) {
		if u.RoleType == models.RoleStudent && m.enrolled[[2]int64{id, u.ID}] {
			ids = append(ids, id)
		}
		if u.RoleType != models.RoleStudent && m.courses[id].InstructorID == u.ID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memCourses struct{ *memDB }

func (m memCourses) Create(_ context.Context, c *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[c.InstructorID]; !ok {
		return apperrors.NewValidationError("instructorId", "instructor does not exist")
	}
	c.ID = m.id()
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m memCourses) GetByID(_ context.Context, id int64) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	cp := *c
	return &cp, nil
}

func (m memCourses) List(_ context.Context, f models.CourseFilter, p helpers.PageRequest) ([]models.Course, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Course
	for _, id := range sortedKeys(m.courses) {
		c := m.courses[id]
		if (f.Subject == "" || c.Subject == f.Subject) && (f.Number == "" || c.Number == f.Number) && (f.Term == "" || c.Term == f.Term) {
			matched = append(matched, *c)
		}
	}
	return page(matched, p), int64(len(matched)), nil
}

func (m memCourses) Update(_ context.Context, c *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[c.ID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m memCourses) Delete(_ context.Context, id int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return nil, apperrors.ErrCourseNotFound
	}
	var paths []string
	for _, aid := range sortedKeys(m.assignments) {
		if m.assignments[aid].CourseID == id {
			paths = append(paths, m.deleteAssignment(aid)...)
		}
	}
	for key := range m.enrolled {
		if key[0] == id {
			delete(m.enrolled, key)
		}
	}
	delete(m.courses, id)
	return paths, nil
}

func (m *memDB) deleteAssignment(id int64) []string {
	var paths []string
	for _, sid := range sortedKeys(m.submissions) {
		if s := m.submissions[sid]; s.AssignmentID == id {
			paths = append(paths, s.StoragePath)
			delete(m.submissions, sid)
		}
	}
	delete(m.assignments, id)
	return paths
}

type memEnrollments struct{ *memDB }

func (m memEnrollments) ApplyDelta(_ context.Context, courseID int64, add, remove []int64) (models.EnrollmentDelta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var d models.EnrollmentDelta
	if m.applyErr != nil {
		return d, m.applyErr
	}
	if _, ok := m.courses[courseID]; !ok {
		return d, apperrors.ErrCourseNotFound
	}
	for _, id := range add {
		u, ok := m.users[id]
		if !ok || u.RoleType != models.RoleStudent {
			d.Skipped++
			continue
		}
		key := [2]int64{courseID, id}
		if !m.enrolled[key] {
			m.enrolled[key] = true
			d.Added++
		}
	}
	for _, id := range remove {
		key := [2]int64{courseID, id}
		if m.enrolled[key] {
			delete(m.enrolled, key)
			d.Removed++
		}
	}
	return d, nil
}

func (m memEnrollments) IsEnrolled(_ context.Context, courseID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrolled[[2]int64{courseID, userID}], nil
}

func (m memEnrollments) ListRoster(_ context.Context, courseID int64) ([]models.RosterEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roster := []models.RosterEntry{}
	for _, id := range sortedKeys(m.users) {
		if m.enrolled[[2]int64{courseID, id}] {
			u := m.users[id]
			roster = append(roster, models.RosterEntry{ID: u.ID, Name: u.Name, Email: u.Email})
		}
	}
	return roster, nil
}

type memAssignments struct{ *memDB }

func (m memAssignments) Create(_ context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[a.CourseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	a.ID = m.id()
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m memAssignments) GetByID(_ context.Context, id int64) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, apperrors.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAssignments) ListByCourse(_ context.Context, courseID int64) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Assignment{}
	for _, id := range sortedKeys(m.assignments) {
		if a := m.assignments[id]; a.CourseID == courseID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m memAssignments) Update(_ context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return apperrors.ErrAssignmentNotFound
	}
	if _, ok := m.courses[a.CourseID]; !ok {
		return apperrors.ErrCourseNotFound
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m memAssignments) Delete(_ context.Context, id int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return nil, apperrors.ErrAssignmentNotFound
	}
	return m.deleteAssignment(id), nil
}

type memSubmissions struct{ *memDB }

func (m memSubmissions) Create(_ context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submissionErr != nil {
		return m.submissionErr
	}
	if _, ok := m.assignments[s.AssignmentID]; !ok {
		return apperrors.ErrAssignmentNotFound
	}
	s.ID = m.id()
	s.Timestamp = time.Now().UTC()
	cp := *s
	m.submissions[s.ID] = &cp
	return nil
}

func (m memSubmissions) GetByID(_ context.Context, id int64) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m memSubmissions) List(_ context.Context, f models.SubmissionFilter, p helpers.PageRequest) ([]models.Submission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Submission
	for _, id := range sortedKeys(m.submissions) {
		s := m.submissions[id]
		if s.AssignmentID == f.AssignmentID && (f.StudentID == nil || s.StudentID == *f.StudentID) {
			matched = append(matched, *s)
		}
	}
	return page(matched, p), int64(len(matched)), nil
}

func (m memSubmissions) UpdateGrade(_ context.Context, id int64, grade float64) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFound
	}
	s.Grade = &grade
	cp := *s
	return &cp, nil
}

// memBlobs is an in-memory filestorage.BlobStore.
type memBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{files: map[string][]byte{}} }

func (b *memBlobs) Save(_ context.Context, name string, r io.Reader, _ string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[name] = data
	return int64(len(data)), nil
}

func (b *memBlobs) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[name]
	if !ok {
		return nil, filestorage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(_ context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, name)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.files)
}

type publishedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Payload: payload})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []string{}
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type deltaRecorder struct {
	added, removed, skipped int
}

func (r *deltaRecorder) RecordEnrollmentDelta(added, removed, skipped int) {
	r.added += added
	r.removed += removed
	r.skipped += skipped
}

// Fixture ids shared by the service tests.
const (
	adminID      int64 = 1
	ownerID      int64 = 2
	otherInstrID int64 = 3
	studentID    int64 = 4
	outsiderID   int64 = 5
	courseID     int64 = 10
	otherCourse  int64 = 11
	assignmentID int64 = 20
	submissionID int64 = 30
)

func ident(id int64, role models.RoleType) auth.Identity {
	return auth.Identity{UserID: id, Role: role}
}

var (
	admin      = ident(adminID, models.RoleAdmin)
	owner      = ident(ownerID, models.RoleInstructor)
	otherInstr = ident(otherInstrID, models.RoleInstructor)
	student    = ident(studentID, models.RoleStudent)
	outsider   = ident(outsiderID, models.RoleStudent)
)

type harness struct {
	db        *memDB
	blobs     *memBlobs
	publisher *recordingPublisher
	delta     *deltaRecorder
	jwt       *pkgauth.JWTService
	authz     *auth.AuthorizationService

	auth       *authServiceImpl
	users      *userServiceImpl
	courses    CourseService
	assignment AssignmentService
	submission SubmissionService
}

func seed(m *memDB) {
	hash, _ := pkgauth.HashPasswordWithCost("correct-horse", bcrypt.MinCost)
	users := []models.User{
		{ID: adminID, Name: "Admin", Email: "admin@example.com", RoleType: models.RoleAdmin},
		{ID: ownerID, Name: "Owner", Email: "owner@example.com", RoleType: models.RoleInstructor},
		{ID: otherInstrID, Name: "Other", Email: "other@example.com", RoleType: models.RoleInstructor},
		{ID: studentID, Name: "Stu", Email: "stu@example.com", RoleType: models.RoleStudent},
		{ID: outsiderID, Name: "Out", Email: "out@example.com", RoleType: models.RoleStudent},
	}
	for i := range users {
		u := users[i]
		u.Password = hash
		m.users[u.ID] = &u
	}
	m.courses[courseID] = &models.Course{ID: courseID, Subject: "CS", Number: "101", Title: "Intro", Term: "fall-2026", InstructorID: ownerID}
	m.courses[otherCourse] = &models.Course{ID: otherCourse, Subject: "MA", Number: "201", Title: "Algebra", Term: "fall-2026", InstructorID: otherInstrID}
	m.assignments[assignmentID] = &models.Assignment{ID: assignmentID, CourseID: courseID, Title: "HW1", Points: 10, Due: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)}
	m.submissions[submissionID] = &models.Submission{ID: submissionID, AssignmentID: assignmentID, StudentID: studentID, Filename: "hw1.pdf", StoragePath: "seed.pdf", ContentType: "application/pdf", FileSize: 4}
	m.enrolled[[2]int64{courseID, studentID}] = true
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	m := newMemDB()
	seed(m)
	blobs := newMemBlobs()
	blobs.files["seed.pdf"] = []byte("%PDF")

	h := &harness{
		db:        m,
		blobs:     blobs,
		publisher: &recordingPublisher{},
		delta:     &deltaRecorder{},
		jwt: pkgauth.NewJWTService(pkgauth.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenExp: time.Hour,
			TokenIssuer:    "coursehub-test",
		}),
	}

	users := memUsers{m}
	ownership := auth.NewOwnershipResolver(memCourses{m}, memAssignments{m}, memSubmissions{m})
	h.authz = auth.NewAuthorizationService(users, memEnrollments{m}, ownership, nil)

	limits := Limits{DefaultPageSize: 10, MaxPageSize: 100, SubmissionPageSize: 2, MaxUploadBytes: 64}
	reconciler := NewEnrollmentReconciler(memEnrollments{m}, h.delta, h.publisher)

	h.auth = &authServiceImpl{userRepo: users, jwtService: h.jwt, hashCost: bcrypt.MinCost}
	h.users = &userServiceImpl{userRepo: users, authzService: h.authz, hashCost: bcrypt.MinCost}
	h.courses = NewCourseService(memCourses{m}, users, memEnrollments{m}, memAssignments{m}, reconciler, h.authz, blobs, limits)
	h.assignment = NewAssignmentService(memAssignments{m}, h.authz, blobs)
	h.submission = NewSubmissionService(memSubmissions{m}, h.authz, blobs, h.publisher, limits)
	return h
}
