package interactivity

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/jonwraymond/blockpress/attr"
	"github.com/jonwraymond/blockpress/observe"
)

// ClientDataID is the id of the script element carrying the store's
// serialized state and config.
const ClientDataID = "wp-script-module-data-@wordpress/interactivity"

// Store holds interactivity state and config by namespace.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Ownership: State and Config return copies; mutate through patches.
type Store struct {
	mu     sync.RWMutex
	state  map[string]*attr.Object
	config map[string]*attr.Object
	logger observe.Logger
}

// NewStore returns an empty store. A nil logger discards notices.
func NewStore(logger observe.Logger) *Store {
	if logger == nil {
		logger = observe.NoopLogger()
	}
	return &Store{
		state:  make(map[string]*attr.Object),
		config: make(map[string]*attr.Object),
		logger: logger,
	}
}

// State deep-merges patch into the namespace's state and returns a copy
// of the result. A nil patch only reads.
func (s *Store) State(ns string, patch *attr.Object) *attr.Object {
	return s.merge(s.state, "Store.State", ns, patch)
}

// Config deep-merges patch into the namespace's config and returns a copy
// of the result.
func (s *Store) Config(ns string, patch *attr.Object) *attr.Object {
	return s.merge(s.config, "Store.Config", ns, patch)
}

func (s *Store) merge(m map[string]*attr.Object, function, ns string, patch *attr.Object) *attr.Object {
	if ns == "" {
		observe.DoingItWrong(context.Background(), s.logger, function, "namespace is required")
		return attr.NewObject()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := m[ns]
	if !ok {
		if patch.Len() == 0 {
			return attr.NewObject()
		}
		cur = attr.NewObject()
		m[ns] = cur
	}
	attr.Merge(cur, patch)
	return cur.Clone()
}

// lookup returns the namespace's state without copying. Callers must
// hold s.mu for reading and must not mutate the result.
func (s *Store) lookup(ns string) *attr.Object {
	return s.state[ns]
}

// Reset discards all state and config.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = make(map[string]*attr.Object)
	s.config = make(map[string]*attr.Object)
}

// Namespaces returns the namespaces holding state or config, sorted.
func (s *Store) Namespaces() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool, len(s.state)+len(s.config))
	for ns := range s.state {
		seen[ns] = true
	}
	for ns := range s.config {
		seen[ns] = true
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// ClientData returns the JSON document handed to the client runtime:
// {"state":{...},"config":{...}}, omitting empty namespaces and sections.
// It returns nil when there is nothing to send.
func (s *Store) ClientData() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := attr.NewObject()
	for _, section := range []struct {
		key string
		m   map[string]*attr.Object
	}{{"config", s.config}, {"state", s.state}} {
		obj := attr.NewObject()
		for _, ns := range sortedNamespaces(section.m) {
			if v := section.m[ns]; v.Len() > 0 {
				obj.Set(ns, attr.ObjectValue(v))
			}
		}
		if obj.Len() > 0 {
			doc.Set(section.key, attr.ObjectValue(obj))
		}
	}
	if doc.Len() == 0 {
		return nil, nil
	}
	return json.Marshal(doc)
}

// ClientDataScript wraps ClientData in a JSON script element, or returns
// "" when the store is empty.
func (s *Store) ClientDataScript() (string, error) {
	data, err := s.ClientData()
	if err != nil || data == nil {
		return "", err
	}
	return `<script type="application/json" id="` + ClientDataID + `">` + string(data) + `</script>`, nil
}

func sortedNamespaces(m map[string]*attr.Object) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type storeKey struct{}

// WithStore returns a context carrying s, so render callbacks shared
// across pipelines can seed the store of the document being rendered.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// StoreFromContext returns the store carried by ctx, or nil.
func StoreFromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeKey{}).(*Store)
	return s
}
