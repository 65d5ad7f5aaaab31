/*
Package errors provides semantic error types for the objectstore library.

The package defines the failure kinds surfaced by managers, sources and drivers.
Each kind can be checked with the standard errors.Is() function or with the
provided helper functions.

Error kinds:

	var (
	    ErrNotFound          = errors.New("entity not found")
	    ErrAlreadyRegistered = errors.New("class already registered")
	    ErrNotRegistered     = errors.New("class not registered")
	    ErrNoDriver          = errors.New("no driver assigned")
	    ErrBackend           = errors.New("backend failure")
	    ErrMalformedStorage  = errors.New("malformed storage")
	    ErrConfiguration     = errors.New("configuration error")
	    ErrInvalidInput      = errors.New("invalid input")
	)

A key that does not resolve is not an error at the manager level: loads return
(zero, false, nil) and batch loads drop the key. Backend failures and malformed
storage are always returned to the caller.

Usage:

	book, ok, err := objectstore.Load[*Book](ctx, src, 42)
	if err != nil {
	    if errors.IsMalformedStorage(err) {
	        // the backing file could not be parsed
	    }
	    return err
	}
	if !ok {
	    // not found is a normal outcome
	}
*/
package errors
