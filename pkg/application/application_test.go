package application

import (
	"context"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/pts-sync/pkg/eventbus"
	"github.com/iota-uz/pts-sync/pkg/logging"
)

type fakeController struct{ key string }

func (c *fakeController) Register(r *mux.Router) {}
func (c *fakeController) Key() string            { return c.key }

type greeter struct{ name string }

func newTestApp() Application {
	log := logging.NopLogger()
	return New(&ApplicationOptions{EventBus: eventbus.NewEventPublisher(log), Logger: log})
}

func TestApplication_Services(t *testing.T) {
	app := newTestApp()
	svc := &greeter{name: "pts"}
	app.RegisterServices(svc)

	got := app.Service(greeter{}).(*greeter)
	require.Same(t, svc, got)
	require.Panics(t, func() { app.Service(fakeController{}) })
}

func TestApplication_ControllersKeepRegistrationOrder(t *testing.T) {
	app := newTestApp()
	app.RegisterControllers(&fakeController{key: "/b"}, &fakeController{key: "/a"})
	app.RegisterControllers(&fakeController{key: "/b"})

	keys := make([]string, 0)
	for _, c := range app.Controllers() {
		keys = append(keys, c.Key())
	}
	require.Equal(t, []string{"/b", "/a"}, keys)
}

func TestMigrationManager_NoSchemasIsNoop(t *testing.T) {
	m := NewMigrationManager(nil, nil)
	require.Empty(t, m.Schemas())
	require.NoError(t, m.Run(context.Background(), "postgres://invalid"))
}
