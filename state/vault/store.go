package vault

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"yieldvault/crypto"
	nativevault "yieldvault/native/vault"
	"yieldvault/storage"
)

var (
	vaultStateKey = ethcrypto.Keccak256([]byte("vault-state"))
	balancePrefix = []byte("balance:")
	rolePrefix    = []byte("role:")
	pausesKey     = ethcrypto.Keccak256([]byte("module-pauses"))
)

func balanceKey(symbol string, addr []byte) []byte {
	buf := make([]byte, 0, len(balancePrefix)+len(symbol)+1+len(addr))
	buf = append(buf, balancePrefix...)
	buf = append(buf, symbol...)
	buf = append(buf, ':')
	buf = append(buf, addr...)
	return ethcrypto.Keccak256(buf)
}

func roleKey(role string) []byte {
	buf := make([]byte, 0, len(rolePrefix)+len(role))
	buf = append(buf, rolePrefix...)
	buf = append(buf, role...)
	return ethcrypto.Keccak256(buf)
}

// Store persists vault state, token balances, role membership, and pause
// switches in a key-value backend. Records are RLP encoded under
// keccak-hashed prefixed keys. It implements the vault engine's state
// interface plus the RoleView and PauseView consulted by the calling layer.
type Store struct {
	mu sync.RWMutex
	db storage.Database
}

// NewStore wraps the supplied database handle.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	value, err := s.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// VaultState loads the persisted vault accounting record, or nil when the
// vault has not been initialised yet.
func (s *Store) VaultState() (*nativevault.VaultState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok, err := s.get(vaultStateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	state := new(nativevault.VaultState)
	if err := rlp.DecodeBytes(raw, state); err != nil {
		return nil, fmt.Errorf("decode vault state: %w", err)
	}
	state.EnsureDefaults()
	return state, nil
}

// PutVaultState persists the vault accounting record.
func (s *Store) PutVaultState(state *nativevault.VaultState) error {
	if state == nil {
		return fmt.Errorf("nil vault state")
	}
	state.EnsureDefaults()
	raw, err := rlp.EncodeToBytes(state)
	if err != nil {
		return fmt.Errorf("encode vault state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(vaultStateKey, raw)
}

// Balance returns the token balance held by an address. Missing records read
// as zero.
func (s *Store) Balance(symbol string, addr crypto.Address) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok, err := s.get(balanceKey(symbol, addr.Bytes()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	balance := new(big.Int)
	if err := rlp.DecodeBytes(raw, balance); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return balance, nil
}

// PutBalance persists a token balance for an address.
func (s *Store) PutBalance(symbol string, addr crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid balance amount")
	}
	raw, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(balanceKey(symbol, addr.Bytes()), raw)
}

func (s *Store) roleMembers(role string) ([][]byte, error) {
	raw, ok, err := s.get(roleKey(role))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var members [][]byte
	if err := rlp.DecodeBytes(raw, &members); err != nil {
		return nil, fmt.Errorf("decode role members: %w", err)
	}
	return members, nil
}

func (s *Store) putRoleMembers(role string, members [][]byte) error {
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i], members[j]) < 0
	})
	raw, err := rlp.EncodeToBytes(members)
	if err != nil {
		return fmt.Errorf("encode role members: %w", err)
	}
	return s.db.Put(roleKey(role), raw)
}

// HasRole reports whether the address holds the named role. Read failures
// report false so role checks fail closed.
func (s *Store) HasRole(role string, addr []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	members, err := s.roleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// GrantRole adds the address to the role's membership. Granting an already
// held role is a no-op.
func (s *Store) GrantRole(role string, addr []byte) error {
	if len(addr) != 20 {
		return fmt.Errorf("role member must be a 20-byte address")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := s.roleMembers(role)
	if err != nil {
		return err
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	return s.putRoleMembers(role, members)
}

// RevokeRole removes the address from the role's membership.
func (s *Store) RevokeRole(role string, addr []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := s.roleMembers(role)
	if err != nil {
		return err
	}
	filtered := members[:0]
	for _, member := range members {
		if !bytes.Equal(member, addr) {
			filtered = append(filtered, member)
		}
	}
	return s.putRoleMembers(role, filtered)
}

func (s *Store) pausedModules() ([]string, error) {
	raw, ok, err := s.get(pausesKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var modules []string
	if err := rlp.DecodeBytes(raw, &modules); err != nil {
		return nil, fmt.Errorf("decode pauses: %w", err)
	}
	return modules, nil
}

// IsPaused reports whether the named module's pause switch is engaged. Read
// failures report true so pause checks fail closed.
func (s *Store) IsPaused(module string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	modules, err := s.pausedModules()
	if err != nil {
		return true
	}
	for _, name := range modules {
		if name == module {
			return true
		}
	}
	return false
}

// SetPaused engages or releases a module's pause switch.
func (s *Store) SetPaused(module string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	modules, err := s.pausedModules()
	if err != nil {
		return err
	}
	filtered := make([]string, 0, len(modules)+1)
	for _, name := range modules {
		if name != module {
			filtered = append(filtered, name)
		}
	}
	if paused {
		filtered = append(filtered, module)
	}
	sort.Strings(filtered)
	raw, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return fmt.Errorf("encode pauses: %w", err)
	}
	return s.db.Put(pausesKey, raw)
}
