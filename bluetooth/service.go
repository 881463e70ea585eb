package bluetooth

import "tinygo.org/x/bluetooth"

// serviceRegistry hands out one characteristic list per service UUID
// so multiple protocol components attach to a single shared service
// instance instead of each creating their own.
type serviceRegistry struct {
	order  []bluetooth.UUID
	byUUID map[bluetooth.UUID]*serviceConfig
}

type serviceConfig struct {
	uuid  bluetooth.UUID
	chars []bluetooth.CharacteristicConfig
}

func newServiceRegistry() *serviceRegistry {
	return &serviceRegistry{
		byUUID: make(map[bluetooth.UUID]*serviceConfig),
	}
}

// serviceFor returns the config for uuid, creating it on first use.
func (r *serviceRegistry) serviceFor(uuid bluetooth.UUID) *serviceConfig {
	if svc, ok := r.byUUID[uuid]; ok {
		return svc
	}

	svc := &serviceConfig{uuid: uuid}
	r.byUUID[uuid] = svc
	r.order = append(r.order, uuid)
	return svc
}

func (r *serviceRegistry) all() []*serviceConfig {
	svcs := make([]*serviceConfig, 0, len(r.order))
	for _, uuid := range r.order {
		svcs = append(svcs, r.byUUID[uuid])
	}
	return svcs
}

func (r *serviceRegistry) uuids() []bluetooth.UUID {
	return r.order
}

func (s *serviceConfig) add(cfg bluetooth.CharacteristicConfig) {
	s.chars = append(s.chars, cfg)
}
