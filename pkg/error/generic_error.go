package error

// GenericError is implemented by error kinds that know how to present
// themselves over the REST surface.
type GenericError interface {
	error
	ErrCode() string
	StatusCode() int
}
