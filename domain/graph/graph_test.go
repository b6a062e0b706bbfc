package graph

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestRegisterRejectsForwardAndForeignReferences(t *testing.T) {
	other := New("proj", "dev")
	foreign, err := other.Register("test:index:Group", "rg", nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	g := New("proj", "dev")
	_, err = g.Register("test:index:Cluster", "aks", Props{"rg": OutputOf[string](foreign, "name")})
	if !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
	_, err = g.Register("test:index:Cluster", "aks", nil, DependsOn(foreign))
	if !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference for DependsOn, got %v", err)
	}
	if len(g.Resources()) != 0 {
		t.Fatalf("failed registrations must not be recorded")
	}
}

func TestRegisterDuplicateAndInvalidName(t *testing.T) {
	g := New("proj", "dev")
	if _, err := g.Register("test:index:Group", "rg", nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := g.Register("test:index:Group", "rg", nil); !errors.Is(err, ErrDuplicateURN) {
		t.Fatalf("expected ErrDuplicateURN, got %v", err)
	}
	if _, err := g.Register("test:index:Group", "bad name", nil); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestProviderOptionRequiresProviderKind(t *testing.T) {
	g := New("proj", "dev")
	rg, _ := g.Register("test:index:Group", "rg", nil)
	if _, err := g.Register("kubernetes:core/v1:Namespace", "ns", nil, WithProvider(rg)); err == nil {
		t.Fatalf("expected error for non-provider provider option")
	}
	p, err := g.RegisterProvider("kubernetes", "k8s", Props{"kubeconfig": SecretVal("x")})
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}
	if p.Package() != "kubernetes" || p.Kind() != KindProvider {
		t.Fatalf("unexpected provider: %s %s", p.Package(), p.Kind())
	}
	ns, err := g.Register("kubernetes:core/v1:Namespace", "ns", nil, WithProvider(p))
	if err != nil {
		t.Fatalf("register namespace: %v", err)
	}
	if deps := ns.Dependencies(); len(deps) != 1 || deps[0] != p.URN() {
		t.Fatalf("provider must be a dependency: %v", deps)
	}
}

func TestOrderMatchesProgramOrderAndIsTopological(t *testing.T) {
	g := New("proj", "dev")
	rg, _ := g.Register("test:index:Group", "rg", nil)
	key, _ := g.Register("test:index:Key", "key", nil)
	cluster, _ := g.Register("test:index:Cluster", "aks", Props{
		"rg":  OutputOf[string](rg, "name"),
		"key": OutputOf[string](key, "public"),
	})
	creds, _ := g.Invoke("test:index:listCreds", Props{"name": OutputOf[string](cluster, "name")})
	prov, _ := g.RegisterProvider("kubernetes", "k8s", Props{"kubeconfig": ToSecret(OutputOf[string](creds, "kubeconfig"))})
	ns, _ := g.Register("test:index:Namespace", "ns", nil, WithProvider(prov))
	rel, _ := g.Register("test:index:Release", "rel", Props{"namespace": OutputOf[string](ns, "name")}, WithProvider(prov))

	order, err := g.Order()
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	pos := map[URN]int{}
	for i, u := range order {
		pos[u] = i
	}
	for _, r := range g.Resources() {
		for _, d := range r.Dependencies() {
			if pos[d] >= pos[r.URN()] {
				t.Fatalf("%s must come after %s", r.URN(), d)
			}
		}
	}
	if order[len(order)-1] != rel.URN() {
		t.Fatalf("release should be last, got %s", order[len(order)-1])
	}
	deps, err := g.Dependents(prov.URN())
	if err != nil {
		t.Fatalf("dependents: %v", err)
	}
	if len(deps) != 2 || deps[0] != ns.URN() || deps[1] != rel.URN() {
		t.Fatalf("unexpected dependents: %v", deps)
	}
	if creds.Kind() != KindInvoke || !strings.HasSuffix(string(creds.URN()), "::invoke-1") {
		t.Fatalf("unexpected invoke urn: %s", creds.URN())
	}

	var buf bytes.Buffer
	if err := g.WriteDOT(&buf); err != nil {
		t.Fatalf("dot: %v", err)
	}
	if !strings.Contains(buf.String(), "digraph") {
		t.Fatalf("unexpected dot output: %s", buf.String())
	}
}

func TestExport(t *testing.T) {
	g := New("proj", "dev")
	if err := g.Export("kubeconfig", SecretVal("x")); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := g.Export("kubeconfig", Val("y")); !errors.Is(err, ErrDuplicateExport) {
		t.Fatalf("expected ErrDuplicateExport, got %v", err)
	}
	if ex := g.Exports(); len(ex) != 1 || !ex[0].Value.IsSecret() {
		t.Fatalf("unexpected exports: %+v", ex)
	}
}

func TestURNParts(t *testing.T) {
	u := NewURN("dev", "proj", "azure-native:resources:ResourceGroup", "azure-go-aks")
	if !u.IsValid() || u.Name() != "azure-go-aks" || u.Type() != "azure-native:resources:ResourceGroup" {
		t.Fatalf("unexpected parts of %s", u)
	}
	if PackageOf(u.Type()) != "azure-native" {
		t.Fatalf("unexpected package %s", PackageOf(u.Type()))
	}
	if PackageOf(ProviderType("kubernetes")) != "kubernetes" {
		t.Fatalf("provider package not resolved")
	}
}

func TestRegisterRejectsNilDependsOn(t *testing.T) {
	g := New("proj", "dev")
	var missing *Resource
	_, err := g.Register("test:index:Cluster", "aks", nil, DependsOn(missing))
	if !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
	if len(g.Resources()) != 0 {
		t.Fatalf("failed registrations must not be recorded")
	}
}

func TestInvokeNamesSkipFailedDeclarations(t *testing.T) {
	g := New("proj", "dev")
	foreign, _ := New("proj", "dev").Register("test:index:Group", "rg", nil)
	if _, err := g.Invoke("test:index:getToken", Props{"id": foreign.ID()}); !errors.Is(err, ErrUnknownReference) {
		t.Fatalf("expected ErrUnknownReference, got %v", err)
	}
	first, err := g.Invoke("test:index:getToken", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	second, err := g.Invoke("test:index:getToken", nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if first.Name() != "invoke-1" || second.Name() != "invoke-2" {
		t.Fatalf("unexpected invoke names %q %q", first.Name(), second.Name())
	}
}

func TestHasSecrets(t *testing.T) {
	g := New("proj", "dev")
	rg, _ := g.Register("test:index:Group", "rg", Props{"location": Val("japaneast")})
	if _, err := g.Invoke("test:index:getToken", Props{"id": rg.ID()}, AdditionalSecretOutputs("token")); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if g.HasSecrets() {
		t.Fatalf("plain resources and invoke results hold no recorded secrets")
	}

	withOutputs := New("proj", "dev")
	withOutputs.Register("tls:index:PrivateKey", "key", nil, AdditionalSecretOutputs("privateKeyPem"))
	withInputs := New("proj", "dev")
	withInputs.RegisterProvider("kubernetes", "k8s", Props{"kubeconfig": SecretVal("x")})
	withExport := New("proj", "dev")
	withExport.Export("kubeconfig", SecretVal("x"))
	for name, g := range map[string]*Graph{"outputs": withOutputs, "inputs": withInputs, "export": withExport} {
		if !g.HasSecrets() {
			t.Errorf("%s: expected secrets", name)
		}
	}
}
