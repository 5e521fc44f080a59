package config

import (
	"net"
	"os"
	"strings"
)

// lookupCNAME is replaced in tests.
var lookupCNAME = net.LookupCNAME

// defaultHostname returns the fully qualified name of this machine, the way hosts
// are usually registered in Zabbix. A short name is returned when DNS has nothing better.
func defaultHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return ""
	}
	if strings.Contains(hostname, ".") {
		return hostname
	}

	cname, err := lookupCNAME(hostname)
	if err != nil {
		return hostname
	}
	if fqdn := strings.TrimSuffix(cname, "."); strings.Contains(fqdn, ".") {
		return fqdn
	}
	return hostname
}
