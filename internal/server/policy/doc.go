// Package policy validates candidate passwords against configurable
// composition rules before they are hashed and stored.
//
// All violated rules are reported together so a client can show the
// complete list at once:
//
//	p := policy.Default()
//	if err := p.Validate("abc"); err != nil {
//	    var v *policy.ViolationError
//	    if errors.As(err, &v) {
//	        fmt.Println(v.Descriptions())
//	    }
//	}
package policy
