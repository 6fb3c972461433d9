package wallet

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// Session is a snapshot of the wallet connection.
// Connected implies Account is set.
type Session struct {
	Connected bool
	Account   *common.Address
	ChainID   *uint64
}

// copySession detaches a snapshot from the manager's pointers.
func copySession(s Session) Session {
	out := Session{Connected: s.Connected}
	if s.Account != nil {
		a := *s.Account
		out.Account = &a
	}
	if s.ChainID != nil {
		id := *s.ChainID
		out.ChainID = &id
	}
	return out
}

// Key identifies the (account, chain) pair a session is bound to.
// It is empty for a disconnected session.
func (s Session) Key() string {
	if !s.Connected || s.Account == nil || s.ChainID == nil {
		return ""
	}
	return s.Account.Hex() + "@" + strconv.FormatUint(*s.ChainID, 10)
}
