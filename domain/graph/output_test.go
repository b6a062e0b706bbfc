package graph

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// testEnv resolves lookups from a static table; URNs absent from the table
// are unknown.
type testEnv struct {
	outputs map[URN]PropertyMap
	calls   int
}

func (e *testEnv) Lookup(urn URN, path string) (Result, error) {
	e.calls++
	outs, ok := e.outputs[urn]
	if !ok {
		return Result{}, nil
	}
	v, secret, ok := outs.Path(path)
	if !ok {
		return Result{Known: true}, nil
	}
	return Result{Value: v, Known: true, Secret: secret}, nil
}

func TestApplyDefersUntilKnown(t *testing.T) {
	g := New("proj", "dev")
	rg, err := g.Register("test:index:Group", "rg", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	ran := 0
	upper := Apply(OutputOf[string](rg, "name"), func(s string) string {
		ran++
		return strings.ToUpper(s)
	})

	v, known, err := upper.Get(&testEnv{})
	if err != nil || known {
		t.Fatalf("expected unknown without error, got %q known=%v err=%v", v, known, err)
	}
	if ran != 0 {
		t.Fatalf("transformation must not run over an unknown value, ran %d times", ran)
	}

	env := &testEnv{outputs: map[URN]PropertyMap{rg.URN(): {"name": "group-a"}}}
	v, known, err = upper.Get(env)
	if err != nil || !known || v != "GROUP-A" {
		t.Fatalf("got %q known=%v err=%v", v, known, err)
	}
	if ran != 1 {
		t.Fatalf("expected one run, got %d", ran)
	}
	if deps := upper.Dependencies(); len(deps) != 1 || deps[0] != rg.URN() {
		t.Fatalf("unexpected dependencies: %v", deps)
	}
}

func TestSecretPropagatesThroughApply(t *testing.T) {
	src := SecretVal("c2VjcmV0")
	derived := Apply(src, func(s string) int { return len(s) })
	if !derived.IsSecret() {
		t.Fatalf("derived output must be secret")
	}
	r, err := derived.Resolve(nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !r.Secret || !r.Known || r.Value != 8 {
		t.Fatalf("unexpected result: %+v", r)
	}

	combined := All(Val("a"), derived)
	if !combined.IsSecret() {
		t.Fatalf("All must be secret when any input is secret")
	}
}

func TestSecretFromEnvPropagates(t *testing.T) {
	g := New("proj", "dev")
	key, _ := g.Register("test:index:Key", "key", nil)
	out := Apply(OutputOf[string](key, "pem"), strings.TrimSpace)
	if out.IsSecret() {
		t.Fatalf("not statically secret")
	}
	env := &testEnv{outputs: map[URN]PropertyMap{key.URN(): {"pem": Secret{Element: " k "}}}}
	r, err := out.Resolve(env)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !r.Secret || r.Value != "k" {
		t.Fatalf("secret flag lost: %+v", r)
	}
}

func TestApplyErrPassesThroughErrors(t *testing.T) {
	boom := errors.New("boom")
	out := ApplyErr(Val(1), func(int) (string, error) { return "", boom })
	if _, err := out.Resolve(nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAllUnknownWhenAnyUnknown(t *testing.T) {
	g := New("proj", "dev")
	a, _ := g.Register("test:index:A", "a", nil)
	all := All(Val("x"), OutputOf[string](a, "name"))
	r, err := all.Resolve(&testEnv{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if r.Known {
		t.Fatalf("expected unknown, got %+v", r)
	}
}

func TestConvertStructFromPropertyMap(t *testing.T) {
	type item struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	out := ApplyErr(Val[any]([]any{map[string]any{"name": "a", "count": float64(3)}}), func(v any) ([]item, error) {
		return convert[[]item](v)
	})
	v, known, err := out.Get(nil)
	if err != nil || !known {
		t.Fatalf("get: known=%v err=%v", known, err)
	}
	if len(v) != 1 || v[0].Name != "a" || v[0].Count != 3 {
		t.Fatalf("unexpected: %+v", v)
	}
}

func TestSecretNeverPrints(t *testing.T) {
	s := Secret{Element: "plaintext"}
	for _, got := range []string{fmt.Sprint(s), fmt.Sprintf("%v", s), fmt.Sprintf("%#v", s), fmt.Sprintf("%+v", PropertyMap{"k": s})} {
		if strings.Contains(got, "plaintext") {
			t.Fatalf("secret leaked: %s", got)
		}
	}
}
