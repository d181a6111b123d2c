// Package regmap loads register descriptions from YAML and opens them as
// device-backed bit-fields.
//
// A register map names every register of one device family:
//
//	device: STM32L1
//	registers:
//	  - name: FLASH_ACR
//	    address: 0x40023C00
//	    fields:
//	      - name: LATENCY
//	        width: 1
//	        values:
//	          - {value: 0, name: WS0}
//	          - {value: 1, name: WS1}
//	      - width: 31          # padding
//
// Every layout is validated when the map is loaded, so a map that loads
// cleanly never produces a configuration error later. Maps for STM32L1 and
// STM32F1 are built in:
//
//	m, err := regmap.Builtin("STM32L1")
//	acr, err := m.Open(drv, "FLASH_ACR")
//	view, err := acr.Cached()
package regmap
