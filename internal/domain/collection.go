package domain

// Collection names a product listing exposed by the remote API.
type Collection string

const (
	CollectionAll Collection = "all"
	CollectionOur Collection = "our"
	CollectionPC  Collection = "pc"
)

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case CollectionAll, CollectionOur, CollectionPC:
		return true
	}
	return false
}
