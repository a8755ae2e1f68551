package access

// ValueCredential defines the credential to use a sealed value. It contains
// the identifier of the value, the name of the contract that owns it, and
// the command allowed on it.
//
// - implements access.Credential
type ValueCredential struct {
	id       []byte
	contract string
	command  string
}

// NewValueCreds creates new credential from the identifier of the value, the
// name of the contract and its command.
func NewValueCreds(id []byte, contract, command string) ValueCredential {
	return ValueCredential{
		id:       id,
		contract: contract,
		command:  command,
	}
}

// GetID implements access.Credential. It returns a copy of the identifier.
func (vc ValueCredential) GetID() []byte {
	return append([]byte{}, vc.id...)
}

// GetRule implements access.Credential. It returns the scope of the credential.
func (vc ValueCredential) GetRule() string {
	return Compile(vc.contract, vc.command)
}
