package catalog

import "github.com/kondukto-io/portguard/internal/core/domain"

type portKey struct {
	port  uint32
	proto domain.Protocol
}

func wellKnown(port uint32, proto domain.Protocol, service, description string, risk domain.RiskLevel, category domain.PortCategory, processes ...string) domain.PortInfo {
	return domain.PortInfo{
		Port:            port,
		Protocol:        proto,
		ServiceName:     service,
		Description:     description,
		RiskLevel:       risk,
		Category:        category,
		WellKnown:       true,
		CommonProcesses: processes,
	}
}

func malware(port uint32, description string, associations ...string) domain.PortInfo {
	return domain.PortInfo{
		Port:                port,
		Protocol:            domain.ProtocolTCP,
		ServiceName:         domain.UnknownValue,
		Description:         description,
		RiskLevel:           domain.RiskCritical,
		Category:            domain.CategoryMalware,
		MalwareAssociations: associations,
	}
}

func staticTable() []domain.PortInfo {
	var (
		tcp = domain.ProtocolTCP
		udp = domain.ProtocolUDP
	)

	telnet := wellKnown(23, tcp, "Telnet", "Telnet Protocol", domain.RiskHigh, domain.CategoryRemoteAccess, "telnetd")
	telnet.SecurityNotes = "insecure protocol, transmits data in plain text"

	rdp := wellKnown(3389, tcp, "RDP", "Remote Desktop Protocol", domain.RiskHigh, domain.CategoryRemoteAccess, "svchost.exe", "xrdp")
	rdp.SecurityNotes = "common target of brute force attacks"

	return []domain.PortInfo{
		wellKnown(21, tcp, "FTP", "File Transfer Protocol", domain.RiskMedium, domain.CategoryFileTransfer, "vsftpd", "proftpd"),
		wellKnown(22, tcp, "SSH", "Secure Shell", domain.RiskMedium, domain.CategoryRemoteAccess, "sshd"),
		telnet,
		wellKnown(25, tcp, "SMTP", "Simple Mail Transfer Protocol", domain.RiskLow, domain.CategoryMail, "postfix", "exim"),
		wellKnown(53, udp, "DNS", "Domain Name System", domain.RiskLow, domain.CategorySystem, "systemd-resolved", "dnsmasq", "named"),
		wellKnown(80, tcp, "HTTP", "HyperText Transfer Protocol", domain.RiskLow, domain.CategoryWeb, "nginx", "httpd", "apache2"),
		wellKnown(110, tcp, "POP3", "Post Office Protocol v3", domain.RiskLow, domain.CategoryMail),
		wellKnown(143, tcp, "IMAP", "Internet Message Access Protocol", domain.RiskLow, domain.CategoryMail),
		wellKnown(443, tcp, "HTTPS", "HTTP Secure", domain.RiskLow, domain.CategoryWeb, "nginx", "httpd", "apache2"),
		wellKnown(993, tcp, "IMAPS", "IMAP Secure", domain.RiskLow, domain.CategoryMail),
		wellKnown(995, tcp, "POP3S", "POP3 Secure", domain.RiskLow, domain.CategoryMail),

		wellKnown(1433, tcp, "MSSQL", "Microsoft SQL Server", domain.RiskMedium, domain.CategoryDatabase, "sqlservr.exe"),
		wellKnown(3306, tcp, "MySQL", "MySQL Database", domain.RiskMedium, domain.CategoryDatabase, "mysqld", "mariadbd"),
		wellKnown(5432, tcp, "PostgreSQL", "PostgreSQL Database", domain.RiskMedium, domain.CategoryDatabase, "postgres"),

		rdp,
		wellKnown(5900, tcp, "VNC", "Virtual Network Computing", domain.RiskHigh, domain.CategoryRemoteAccess, "vncserver", "x11vnc"),

		malware(1234, "port commonly used by malware", "SubSeven", "Ultors Trojan"),
		malware(4444, "common backdoor port", "MetaSploit", "Various Trojans"),
		malware(6666, "port used by several trojans", "Back Construction", "NetBus"),
		malware(12345, "typical NetBus trojan port", "NetBus", "Whack-a-mole"),
	}
}

// signatureTable maps known malware ports to the families seen on them
func signatureTable() map[portKey][]string {
	return map[portKey][]string{
		{1234, domain.ProtocolTCP}:  {"SubSeven", "Ultors Trojan"},
		{4444, domain.ProtocolTCP}:  {"MetaSploit", "Various Trojans"},
		{6666, domain.ProtocolTCP}:  {"Back Construction", "NetBus"},
		{12345, domain.ProtocolTCP}: {"NetBus", "Whack-a-mole"},
		{31337, domain.ProtocolTCP}: {"Back Orifice", "Elite hackers"},
		{54321, domain.ProtocolTCP}: {"Back Orifice 2000"},
	}
}
