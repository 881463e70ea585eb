package bluetooth

import (
	"sync"
	"sync/atomic"

	"github.com/kellegous/poop"
	"tinygo.org/x/bluetooth"

	racechrono "github.com/markubiak/racechrono-ble-diy-device"
)

var (
	// ServiceUUID is the 16-bit UUID RaceChrono scans for to find DIY
	// devices.
	ServiceUUID = bluetooth.New16BitUUID(0x1FF8)

	canMainCharUUID   = bluetooth.New16BitUUID(0x0001)
	canFilterCharUUID = bluetooth.New16BitUUID(0x0002)
	monConfigCharUUID = bluetooth.New16BitUUID(0x0005)
	monNotifyCharUUID = bluetooth.New16BitUUID(0x0006)
)

// Peripheral is the device end of the link: it owns the adapter,
// tracks the connected peer and hands protocol components
// characteristics on a shared service. Attach components with
// AddMonitor and AddCANSpoof, then call Start.
type Peripheral struct {
	adapter  *bluetooth.Adapter
	name     string
	conns    atomic.Int32
	services *serviceRegistry
	monitors []*racechrono.Monitor

	// mu guards adv and started against the adapter's event goroutine.
	mu      sync.Mutex
	adv     *bluetooth.Advertisement
	started bool
}

// NewPeripheral enables the adapter and prepares a peripheral. No
// service exists and nothing is advertised until Start.
func NewPeripheral(adapter *bluetooth.Adapter, opts ...Option) (*Peripheral, error) {
	o := options{
		name: DefaultLocalName,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := adapter.Enable(); err != nil {
		return nil, poop.Chain(err)
	}

	p := &Peripheral{
		adapter:  adapter,
		name:     o.name,
		services: newServiceRegistry(),
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if adv := p.connectChanged(connected); adv != nil {
			adv.Start()
		}
	})

	return p, nil
}

// connectChanged tracks the peer count and, on a disconnect after
// Start, returns the advertisement that has to be restarted so a new
// peer can find us. A departed peer does not touch protocol state; the
// monitors' timers drive re-registration.
func (p *Peripheral) connectChanged(connected bool) *bluetooth.Advertisement {
	if connected {
		p.conns.Add(1)
		return nil
	}
	p.conns.Add(-1)

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adv
}

// Connections reports the number of connected centrals.
func (p *Peripheral) Connections() int {
	return int(p.conns.Load())
}

// AddMonitor attaches the monitor config and notify characteristics to
// the shared service and returns a Monitor bound to them. Must be
// called before Start.
func (p *Peripheral) AddMonitor(opts ...racechrono.Option) (*racechrono.Monitor, error) {
	if p.isStarted() {
		return nil, poop.New("peripheral already started")
	}

	tx := &charTx{peripheral: p}
	mon, err := racechrono.NewMonitor(tx, opts...)
	if err != nil {
		return nil, poop.Chain(err)
	}

	svc := p.services.serviceFor(ServiceUUID)
	svc.add(bluetooth.CharacteristicConfig{
		Handle: &tx.char,
		UUID:   monConfigCharUUID,
		Flags: bluetooth.CharacteristicIndicatePermission |
			bluetooth.CharacteristicWritePermission,
		WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
			mon.HandleAck(value)
		},
	})
	svc.add(bluetooth.CharacteristicConfig{
		UUID:  monNotifyCharUUID,
		Flags: bluetooth.CharacteristicWriteWithoutResponsePermission,
		WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
			mon.HandleValues(value)
		},
	})

	p.monitors = append(p.monitors, mon)
	return mon, nil
}

// AddCANSpoof attaches the fake bus characteristics to the shared
// service and returns a CANSpoof bound to the main channel. RaceChrono
// writes PID filter commands to the filter characteristic; they land
// in onFilter when it is not nil and are dropped otherwise, which is
// all the spoofed single-PID bus needs. Must be called before Start.
func (p *Peripheral) AddCANSpoof(onFilter func(data []byte)) (*racechrono.CANSpoof, error) {
	if p.isStarted() {
		return nil, poop.New("peripheral already started")
	}

	tx := &charTx{peripheral: p}

	svc := p.services.serviceFor(ServiceUUID)
	svc.add(bluetooth.CharacteristicConfig{
		Handle: &tx.char,
		UUID:   canMainCharUUID,
		Flags: bluetooth.CharacteristicReadPermission |
			bluetooth.CharacteristicNotifyPermission,
	})
	svc.add(bluetooth.CharacteristicConfig{
		UUID:  canFilterCharUUID,
		Flags: bluetooth.CharacteristicWritePermission,
		WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
			if onFilter != nil {
				onFilter(value)
			}
		},
	})

	return racechrono.NewCANSpoof(tx), nil
}

// Start registers the accumulated services, begins advertising and
// kicks off registration on every attached monitor.
func (p *Peripheral) Start() error {
	if p.isStarted() {
		return poop.New("peripheral already started")
	}

	for _, svc := range p.services.all() {
		if err := p.adapter.AddService(&bluetooth.Service{
			UUID:            svc.uuid,
			Characteristics: svc.chars,
		}); err != nil {
			return poop.Chain(err)
		}
	}

	adv := p.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.name,
		ServiceUUIDs: p.services.uuids(),
	}); err != nil {
		return poop.Chain(err)
	}
	if err := adv.Start(); err != nil {
		return poop.Chain(err)
	}

	p.mu.Lock()
	p.adv = adv
	p.started = true
	p.mu.Unlock()

	for _, mon := range p.monitors {
		if err := mon.Start(); err != nil {
			return poop.Chain(err)
		}
	}

	return nil
}

func (p *Peripheral) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// Stop shuts down advertising and closes the attached monitors.
func (p *Peripheral) Stop() error {
	for _, mon := range p.monitors {
		mon.Close()
	}

	p.mu.Lock()
	adv := p.adv
	p.mu.Unlock()

	if adv != nil {
		return poop.Chain(adv.Stop())
	}
	return nil
}
