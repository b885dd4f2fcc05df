package distr

import (
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/outcome-engine/outcome/internal/machineerr"
	"github.com/outcome-engine/outcome/internal/model"
	"github.com/outcome-engine/outcome/internal/sched"
	"github.com/outcome-engine/outcome/internal/value"
)

// SimCentral is the distributed deployment's central authority: it owns
// the SimModel and the event queue, exactly as Sim does, but does not
// itself hold any entity storage — entities are owned by separate
// entity-node processes, reachable only through the wire protocol (spec
// §4.G "central-remote scope", §1 non-goal: the socket transport itself
// is out of scope for this package). SimCentral implements
// model.CentralAuthority identically to Sim; the two intentionally share
// no code beyond that interface, mirroring outcome-core's separate Sim
// and SimCentral types rather than one generalized over a transport.
type SimCentral struct {
	mu         sync.Mutex
	model      *model.SimModel
	queue      *sched.EventQueue
	clock      *sched.Clock
	log        *zap.Logger
	nextID     value.EntityID
	entityDirectory map[value.EntityID]value.StringID
	nameToID   map[value.StringID]value.EntityID
	nodeOf     map[value.EntityID]string
}

// NewCentral creates a SimCentral over an already-built model.
func NewCentral(m *model.SimModel, log *zap.Logger) *SimCentral {
	return &SimCentral{
		model:           m,
		queue:           sched.NewEventQueue(),
		clock:           sched.NewClock(log),
		log:             log,
		entityDirectory: make(map[value.EntityID]value.StringID),
		nameToID:        make(map[value.StringID]value.EntityID),
		nodeOf:          make(map[value.EntityID]string),
	}
}

func (c *SimCentral) Model() *model.SimModel { return c.model }
func (c *SimCentral) Tick() uint64           { return c.clock.Tick() }

func (c *SimCentral) EnqueueEvent(id value.StringID) { c.queue.Enqueue(id) }

func (c *SimCentral) RegisterEvent(id value.StringID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model.RegisterEvent(id)
}

func (c *SimCentral) RegisterEntityPrefab(p model.EntityPrefabModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.RegisterEntityPrefab(p)
}

func (c *SimCentral) RegisterComponent(cm model.ComponentModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.RegisterComponent(cm)
}

func (c *SimCentral) RegisterVar(comp value.CompID, v model.VarModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.RegisterVar(comp, v)
}

func (c *SimCentral) RegisterTrigger(comp value.CompID, event value.StringID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.RegisterTrigger(comp, event)
}

func (c *SimCentral) ExtendComponent(comp value.CompID, extra model.LogicModel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model.ExtendComponent(comp, extra)
}

// DespawnEntity implements model.CentralAuthority. In the distributed
// tier this drops the directory bookkeeping; actually tearing down the
// entity's storage on its assigned node happens over the wire protocol
// (out of scope here, spec §1).
func (c *SimCentral) DespawnEntity(name value.StringID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.nameToID[name]
	if !ok {
		return machineerr.Other("sim despawn: no such entity %q", name)
	}
	delete(c.entityDirectory, id)
	delete(c.nameToID, name)
	delete(c.nodeOf, id)
	return nil
}

// AssignNode records which entity-node process owns a spawned entity, a
// bookkeeping step a real deployment's node-registration handshake (over
// the wire protocol) would perform; this package stops at recording the
// assignment, since opening and framing that connection is out of scope
// (spec §1).
func (c *SimCentral) AssignNode(id value.EntityID, node string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeOf[id] = node
}

// NodeOf reports which entity-node a given entity was assigned to by
// AssignNode.
func (c *SimCentral) NodeOf(id value.EntityID) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodeOf[id]
	return n, ok
}

// DistributionPolicy picks which entity-node a newly spawned entity
// should be placed on (spec §4.G "distribution policy"). RandomPolicy is
// the only implementation named in spec §4.G's initial scope; it is a
// plain round-robin here since true randomness would make replay
// non-deterministic (spec §5).
type DistributionPolicy interface {
	Pick(nodes []string, spawned value.EntityID) string
}

type RoundRobinPolicy struct {
	mu   sync.Mutex
	next int
}

func (p *RoundRobinPolicy) Pick(nodes []string, spawned value.EntityID) string {
	if len(nodes) == 0 {
		return ""
	}
	sorted := append([]string(nil), nodes...)
	sort.Strings(sorted)
	p.mu.Lock()
	defer p.mu.Unlock()
	n := sorted[p.next%len(sorted)]
	p.next++
	return n
}

// SpawnEntity implements model.CentralAuthority. In the distributed tier
// this only allocates the id and name and records it in the directory;
// actually materializing the entity's storage on its assigned node
// happens by sending a spawn instruction over the wire protocol (out of
// scope here, spec §1).
func (c *SimCentral) SpawnEntity(prefab *value.StringID, spawnID *value.StringID) (value.EntityID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prefab != nil {
		if _, ok := c.model.EntityPrefabs[*prefab]; !ok {
			return 0, machineerr.Other("spawn: no such entity prefab %q", *prefab)
		}
	}
	c.nextID++
	id := c.nextID
	name := value.NewStringID("e" + strconv.FormatUint(uint64(id), 10))
	if spawnID != nil {
		name = *spawnID
	}
	c.entityDirectory[id] = name
	c.nameToID[name] = id
	return id, nil
}
