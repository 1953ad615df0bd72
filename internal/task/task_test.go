package task

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/workhub/breaker"
	"github.com/ceyewan/workhub/internal/peer"
	"github.com/ceyewan/workhub/resilience"
	"github.com/ceyewan/workhub/testkit"
	"github.com/ceyewan/workhub/xerrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubUsers 固定的员工名单，err 非空时模拟 user-service 故障
type stubUsers struct {
	known map[string]bool
	err   error
}

func (s *stubUsers) Exists(_ context.Context, username string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.known[username], nil
}

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	users  *stubUsers
	guard  *resilience.Guard
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := &stubUsers{known: map[string]bool{"bob": true, "carol": true}}
	svc := NewService(NewRepository(testkit.NewDB(t, &Task{})), users,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(testkit.NewLogger()))
	guard := testkit.NewGuard(t)
	r := gin.New()
	NewHandler(svc, guard).Register(r.Group("/api/v1/task"))
	return &fixture{svc: svc, users: users, guard: guard, router: r}
}

func newTask(subject, project, employee string) *Task {
	return &Task{TaskSubject: subject, TaskDetail: subject + " detail", ProjectCode: project, AssignedEmployee: employee}
}

func TestCreateAssignsOpenStatusAndToday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := newTask("design", "P-1", "bob")
	in.TaskStatus = StatusComplete
	created, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, created.TaskStatus)
	assert.True(t, created.AssignedDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))

	_, err = f.svc.Create(ctx, newTask("design", "P-1", "ghost"))
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = f.svc.Create(ctx, newTask("", "P-1", "bob"))
	assert.ErrorIs(t, err, ErrSubjectRequired)

	_, err = f.svc.Create(ctx, newTask("design", "P-1", ""))
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
}

func TestUpdateKeepsStatusAndAssignedDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, newTask("design", "P-1", "bob"))
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, created.ID, StatusInProgress)
	require.NoError(t, err)

	later := fixedNow.Add(48 * time.Hour)
	f.svc.now = func() time.Time { return later }

	updated, err := f.svc.Update(ctx, &Task{ID: created.ID, TaskSubject: "redesign", AssignedEmployee: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "redesign", updated.TaskSubject)
	assert.Equal(t, "carol", updated.AssignedEmployee)
	assert.Equal(t, StatusInProgress, updated.TaskStatus)
	assert.Equal(t, "P-1", updated.ProjectCode)
	assert.True(t, updated.AssignedDate.Equal(created.AssignedDate))

	_, err = f.svc.Update(ctx, &Task{ID: created.ID, TaskSubject: "x", AssignedEmployee: "ghost"})
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", got.AssignedEmployee)

	_, err = f.svc.Update(ctx, &Task{ID: 999, TaskSubject: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Update(ctx, &Task{ID: created.ID, TaskStatus: "Done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestEmployeeViewsAndProjectOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uint
	for _, in := range []*Task{
		newTask("a", "P-1", "bob"),
		newTask("b", "P-1", "bob"),
		newTask("c", "P-1", "carol"),
		newTask("d", "P-2", "bob"),
	} {
		created, err := f.svc.Create(ctx, in)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := f.svc.UpdateStatus(ctx, ids[0], StatusComplete)
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
	archive, err := f.svc.Archive(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, archive, 1)
	assert.Equal(t, ids[0], archive[0].ID)

	counts, err := f.svc.Counts(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, peer.TaskCounts{Completed: 1, NonCompleted: 2}, counts)

	require.NoError(t, f.svc.CompleteByProject(ctx, "P-1"))
	counts, err = f.svc.Counts(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, peer.TaskCounts{Completed: 3}, counts)

	require.NoError(t, f.svc.DeleteByProject(ctx, "P-1"))
	counts, err = f.svc.Counts(ctx, "P-1")
	require.NoError(t, err)
	assert.Zero(t, counts)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "P-2", all[0].ProjectCode)

	require.NoError(t, f.svc.Delete(ctx, ids[3]))
	assert.ErrorIs(t, f.svc.Delete(ctx, ids[3]), ErrNotFound)
}

func TestHandlerRoutes(t *testing.T) {
	f := newFixture(t)
	r := f.router

	env := testkit.Do(t, r, http.MethodPost, "/api/v1/task", newTask("design", "P-1", "bob"))
	require.Equal(t, http.StatusCreated, env.Code)
	assert.Equal(t, "Task is successfully created", env.Message)
	var created Task
	env.Into(t, &created)

	env = testkit.Do(t, r, http.MethodPost, "/api/v1/task", newTask("design", "P-1", "ghost"))
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Equal(t, "Employee ghost Not Found", env.Message)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task", nil)
	assert.Equal(t, "Task are successfully retrieved", env.Message)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/1", nil)
	assert.Equal(t, http.StatusOK, env.Code)
	assert.Equal(t, "Task is successfully retrieved", env.Message)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/42", nil)
	assert.Equal(t, http.StatusNotFound, env.Code)
	assert.Equal(t, "Task Not Found", env.Message)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/abc", nil)
	assert.Equal(t, http.StatusBadRequest, env.Code)

	env = testkit.Do(t, r, http.MethodPut, "/api/v1/task/employee/update", StatusUpdate{ID: created.ID, TaskStatus: StatusComplete})
	assert.Equal(t, http.StatusOK, env.Code)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/employee/archive?user=bob", nil)
	assert.Equal(t, "Tasks are successfully retrieved", env.Message)
	var archive []Task
	env.Into(t, &archive)
	assert.Len(t, archive, 1)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/employee/pending-tasks", nil)
	assert.Equal(t, http.StatusBadRequest, env.Code)

	env = testkit.Do(t, r, http.MethodGet, "/api/v1/task/count/project/P-1", nil)
	var counts peer.TaskCounts
	env.Into(t, &counts)
	assert.Equal(t, peer.TaskCounts{Completed: 1}, counts)

	env = testkit.Do(t, r, http.MethodPut, "/api/v1/task/project/P-1/complete", nil)
	assert.Equal(t, "Tasks are successfully completed", env.Message)

	env = testkit.Do(t, r, http.MethodDelete, "/api/v1/task/project/P-1", nil)
	assert.Equal(t, "Tasks are successfully deleted", env.Message)

	env = testkit.Do(t, r, http.MethodDelete, "/api/v1/task/1", nil)
	assert.Equal(t, http.StatusNotFound, env.Code)

	assert.Equal(t, breaker.StateClosed, f.guard.Registry().State(ServiceName))
}

func TestUserServiceOutageDegradesCreate(t *testing.T) {
	f := newFixture(t)
	f.users.err = xerrors.Wrap(xerrors.ErrUnavailable, "user-service down")

	for range 2 {
		env := testkit.Do(t, f.router, http.MethodPost, "/api/v1/task", newTask("design", "P-1", "bob"))
		assert.Equal(t, http.StatusServiceUnavailable, env.Code)
		assert.Equal(t, "service unavailable, the write could not be completed.", env.Message)
	}
	assert.Equal(t, breaker.StateOpen, f.guard.Registry().State(ServiceName))

	f.users.err = nil
	env := testkit.Do(t, f.router, http.MethodGet, "/api/v1/task", nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.Code)
	assert.Equal(t, resilience.MessageListUnavailable, env.Message)
}
