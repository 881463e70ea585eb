package bluetooth

import (
	"tinygo.org/x/bluetooth"

	racechrono "github.com/markubiak/racechrono-ble-diy-device"
)

// charTx adapts one local characteristic to racechrono.Transport. A
// write lands as an indication or a notification depending on the
// characteristic's flags.
type charTx struct {
	peripheral *Peripheral
	char       bluetooth.Characteristic
}

var _ racechrono.Transport = (*charTx)(nil)

func (t *charTx) Write(p []byte) (int, error) {
	return t.char.Write(p)
}

func (t *charTx) Connections() int {
	return t.peripheral.Connections()
}
