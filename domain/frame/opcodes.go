package frame

// ServiceOp enumerates the Class=Service transport sub-protocols.
type ServiceOp uint8

const (
	OpHandshakeRequest ServiceOp = iota
	OpHandshakeResponse
	OpSecretHandshakeRequest
	OpSecretHandshakeResponse
	OpRegistrationRequest
	OpRegistrationResponse
	OpPollDeviceList
	OpPushDeviceList
	OpClientStatusInfo
)

// ControlOp enumerates the Class=Control transport sub-protocols.
type ControlOp uint8

const (
	OpPing ControlOp = iota
	OpPong
	OpAddrRequest
	OpAddrResponse
)

// IPTurnOp enumerates the Class=IpTurn transport sub-protocols.
type IPTurnOp uint8

const (
	OpIPv4 IPTurnOp = iota
	OpIPv4Broadcast
)
