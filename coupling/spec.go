package coupling

import (
	"fmt"
	"strings"
)

// ConnKind names the global DOF handle consulted to walk a namespace's
// locally-owned degrees of freedom: "state" DOFs (e.g. cell or node
// solution values) or "node" DOFs (e.g. mesh vertices).
type ConnKind int

const (
	StateConn ConnKind = iota
	NodeConn
)

func ParseConnKind(s string) (ConnKind, error) {
	switch strings.ToLower(s) {
	case "state", "states":
		return StateConn, nil
	case "node", "nodes":
		return NodeConn, nil
	default:
		return 0, fmt.Errorf("coupling: unknown connectivity kind %q", s)
	}
}

// dofHandleName is the bare socket name of the global DOF handle that
// backs a ConnKind.
func (k ConnKind) dofHandleName() string {
	switch k {
	case NodeConn:
		return "nodes"
	default:
		return "states"
	}
}

// TransferSpec is a parsed "nsA_sockA>nsB_sockB" descriptor string.
// SendSocket and RecvSocket keep the full spelled compound form
// (namespace prefix included): storage.Registry strips the prefix again
// at resolution time, so the compound form is retained here purely as
// the plan's externally-visible identity.
type TransferSpec struct {
	Raw string

	SendNamespace string
	SendSocket    string // compound, e.g. "nsA_sockA"
	RecvNamespace string
	RecvSocket    string // compound, e.g. "nsB_sockB"
}

// ParseTransferSpec parses one entry of the configured transfer list.
func ParseTransferSpec(raw string) (*TransferSpec, error) {
	parts := strings.Split(raw, ">")
	if len(parts) != 2 {
		return nil, fmt.Errorf("coupling: transfer spec %q must have exactly one '>'", raw)
	}
	send, recv := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	sendNs, err := firstToken(send)
	if err != nil {
		return nil, fmt.Errorf("coupling: send side of %q: %w", raw, err)
	}
	recvNs, err := firstToken(recv)
	if err != nil {
		return nil, fmt.Errorf("coupling: recv side of %q: %w", raw, err)
	}
	return &TransferSpec{
		Raw:           raw,
		SendNamespace: sendNs,
		SendSocket:    send,
		RecvNamespace: recvNs,
		RecvSocket:    recv,
	}, nil
}

func firstToken(compound string) (string, error) {
	i := strings.Index(compound, "_")
	if i <= 0 || i == len(compound)-1 {
		return "", fmt.Errorf("%q is not of the form namespace_socket", compound)
	}
	return compound[:i], nil
}
