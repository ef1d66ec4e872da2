package domainerrors

// Numeric result codes returned to registry callers. These values are an
// external contract and must not change.
const (
	ContractUnauthorized  = 403
	ContractAlreadyExists = 100
	ContractNotFound      = 404
)

var contractCodes = map[Code]int{
	CodeForbidden: ContractUnauthorized,
	CodeConflict:  ContractAlreadyExists,
	CodeNotFound:  ContractNotFound,
}

// ContractCode maps err to its numeric registry result code. The second
// return is false for errors outside the contract (validation, internal).
func ContractCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	c, ok := contractCodes[CodeOf(err)]
	return c, ok
}
