// Package discovery advertises and finds memory servers with mDNS/DNS-SD.
//
// A server registers an instance of service type _swdmem._tcp. Its TXT
// record names the attached target:
//
//	target=<device or family name>   required
//	ver=<protocol version>           required
//	mcu=<part number>                optional
//
// Clients browse for instances and connect to Service.Address().
package discovery
