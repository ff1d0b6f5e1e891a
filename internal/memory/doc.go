// Package memory sets the Go soft memory limit when the server runs in a
// container.
//
// Kubernetes does not tell the Go runtime about the pod memory limit. Pass
// it through the Downward API:
//
//	env:
//	  - name: CATALOG_MEMORY_LIMIT
//	    valueFrom:
//	      resourceFieldRef:
//	        resource: limits.memory
//
// Configure then sets GOMEMLIMIT to CATALOG_MEMORY_RATIO (default 0.80) of
// that value. An explicit GOMEMLIMIT is left untouched.
package memory
