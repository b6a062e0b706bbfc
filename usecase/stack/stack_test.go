package stack

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	providerdrv "github.com/kompox/aksgraph/adapters/drivers/provider"
	"github.com/kompox/aksgraph/adapters/store/inmem"
	"github.com/kompox/aksgraph/domain/graph"
	"github.com/kompox/aksgraph/domain/model"
	"github.com/kompox/aksgraph/engine"
)

const typeKey = "test:index:Key"

type fakeDrivers struct{ created, deleted []string }

func (f *fakeDrivers) Default(context.Context, string) (providerdrv.Driver, error) {
	return &fakeDriver{parent: f}, nil
}

func (f *fakeDrivers) Configure(context.Context, string, graph.PropertyMap) (providerdrv.Driver, error) {
	return &fakeDriver{parent: f}, nil
}

type fakeDriver struct{ parent *fakeDrivers }

func (d *fakeDriver) ID() string { return "test" }

func (d *fakeDriver) Check(context.Context, string, graph.PropertyMap) error { return nil }

func (d *fakeDriver) Diff(_ context.Context, _ string, olds, news graph.PropertyMap) (*providerdrv.DiffResult, error) {
	return providerdrv.DiffProperties(olds, news), nil
}

func (d *fakeDriver) Create(_ context.Context, req *providerdrv.CreateRequest) (*providerdrv.CreateResponse, error) {
	d.parent.created = append(d.parent.created, req.Name)
	return &providerdrv.CreateResponse{
		ID:      req.Name,
		Outputs: graph.PropertyMap{"private": graph.Secret{Element: "pem-" + req.Name}, "public": "pub-" + req.Name},
	}, nil
}

func (d *fakeDriver) Update(_ context.Context, req *providerdrv.UpdateRequest) (graph.PropertyMap, error) {
	return req.OldOutputs, nil
}

func (d *fakeDriver) Delete(_ context.Context, req *providerdrv.DeleteRequest) error {
	d.parent.deleted = append(d.parent.deleted, req.ID)
	return nil
}

func (d *fakeDriver) Invoke(context.Context, string, graph.PropertyMap) (graph.PropertyMap, error) {
	return nil, providerdrv.ErrUnknownType
}

func newUseCase(t *testing.T) (*UseCase, *fakeDrivers) {
	t.Helper()
	drivers := &fakeDrivers{}
	repo := inmem.NewStackRepository()
	return &UseCase{
		Repos:   &Repos{Snapshot: repo},
		Engine:  engine.New(drivers, repo, engine.Options{Parallel: 2}),
		Project: "proj",
		Declare: func(g *graph.Graph) error {
			k, err := g.Register(typeKey, "key", graph.Props{"bits": graph.Val(4096)})
			if err != nil {
				return err
			}
			if err := g.Export("public", graph.OutputOf[string](k, "public")); err != nil {
				return err
			}
			return g.Export("private", graph.OutputOf[string](k, "private"))
		},
	}, drivers
}

func TestPreviewUpOutputsDestroy(t *testing.T) {
	ctx := context.Background()
	u, drivers := newUseCase(t)

	prev, err := u.Preview(ctx, &PreviewInput{Stack: "dev"})
	require.NoError(t, err)
	require.Equal(t, map[engine.Op]int{engine.OpCreate: 1}, prev.Plan.Counts())
	_, err = u.Repos.Snapshot.Get(ctx, "dev")
	require.ErrorIs(t, err, model.ErrStackNotFound)

	up, err := u.Up(ctx, &UpInput{Stack: "dev"})
	require.NoError(t, err)
	require.Len(t, up.Snapshot.Resources, 1)

	out, err := u.Outputs(ctx, &OutputsInput{Stack: "dev"})
	require.NoError(t, err)
	require.Equal(t, "pub-key", out.Outputs["public"])
	require.Equal(t, "[secret]", out.Outputs["private"])

	out, err = u.Outputs(ctx, &OutputsInput{Stack: "dev", ShowSecrets: true})
	require.NoError(t, err)
	require.Equal(t, "pem-key", out.Outputs["private"])

	prev, err = u.Preview(ctx, &PreviewInput{Stack: "dev"})
	require.NoError(t, err)
	require.False(t, prev.Plan.HasChanges())

	d, err := u.Destroy(ctx, &DestroyInput{Stack: "dev", Remove: true})
	require.NoError(t, err)
	require.Equal(t, 1, d.Deleted)
	require.Equal(t, []string{"key"}, drivers.deleted)
	_, err = u.Repos.Snapshot.Get(ctx, "dev")
	require.ErrorIs(t, err, model.ErrStackNotFound)
}

func TestGraph(t *testing.T) {
	u, _ := newUseCase(t)
	var buf bytes.Buffer
	require.NoError(t, u.Graph(context.Background(), &GraphInput{Stack: "dev"}, &buf))
	require.Contains(t, buf.String(), "digraph")
	require.Contains(t, buf.String(), typeKey)
}

func TestInvalidStack(t *testing.T) {
	u, _ := newUseCase(t)
	_, err := u.Up(context.Background(), &UpInput{})
	require.ErrorIs(t, err, model.ErrStackInvalid)
	_, err = u.Destroy(context.Background(), &DestroyInput{Stack: "missing"})
	require.ErrorIs(t, err, model.ErrStackNotFound)
}

// plainRepo stores snapshots but cannot store secret values.
type plainRepo struct {
	*inmem.StackRepository
	closed int
}

func (r *plainRepo) CanStoreSecrets() bool { return false }

func (r *plainRepo) Close() error {
	r.closed++
	return nil
}

func TestUpWithoutCrypterFailsBeforeAnyStep(t *testing.T) {
	ctx := context.Background()
	u, drivers := newUseCase(t)
	repo := &plainRepo{StackRepository: inmem.NewStackRepository()}
	u.Repos = &Repos{Snapshot: repo}
	u.Engine = engine.New(drivers, repo, engine.Options{Parallel: 1})
	declare := u.Declare
	u.Declare = func(g *graph.Graph) error {
		if err := declare(g); err != nil {
			return err
		}
		_, err := g.Register(typeKey, "ssh", nil, graph.AdditionalSecretOutputs("private"))
		return err
	}

	_, err := u.Up(ctx, &UpInput{Stack: "dev"})
	require.ErrorIs(t, err, graph.ErrNoCrypter)
	require.Empty(t, drivers.created)
	_, err = repo.Get(ctx, "dev")
	require.ErrorIs(t, err, model.ErrStackNotFound)

	require.NoError(t, u.Repos.Close())
	require.Equal(t, 1, repo.closed)
	var none *Repos
	require.NoError(t, none.Close())
}
