// Package device describes supported microcontrollers and identifies the
// one attached to a MemoryDriver.
//
// Families and their MCU tables are embedded YAML. Identify reads the
// DBGMCU IDCODE register and the flash size register of the target and
// returns the matching MCUs:
//
//	id, err := device.Identify(drv)
//	if err != nil {
//		return err
//	}
//	fmt.Println(id.Family.Name, id.MCU().Name, id.FlashKiB)
package device
