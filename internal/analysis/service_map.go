package analysis

import "strconv"

var sshPorts = map[int]string{
	22:    "SSH",
	443:   "SSH/HTTPS",
	830:   "NETCONF-SSH",
	2222:  "SSH-Alt",
	7999:  "Bitbucket-SSH",
	8022:  "SSH-Alt",
	22222: "SSH-Alt",
	29418: "Gerrit-SSH",
}

// GetServiceName returns the common name for a port, or the port number as a string.
func GetServiceName(port int) string {
	if name, ok := sshPorts[port]; ok {
		return name
	}
	return strconv.Itoa(port)
}
