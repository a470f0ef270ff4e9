package lower

import (
	"github.com/viperlang/ilc/internal/source"
)

// DiagPrivateMemberAccess is the stable diagnostic code for an access to a
// private entity member from outside the entity that declares it.
const DiagPrivateMemberAccess = "V3000"

// Visibility is the minimal entity-member visibility a lowerer needs to
// check field and method access against; it does not model full nominal
// typing, only "is this member private, and if so, who declared it."
type Visibility struct {
	// declaringEntity maps a fully-mangled member name to the entity name
	// that declared it.
	declaringEntity map[string]string
	private         map[string]bool
}

// NewVisibility returns an empty visibility table.
func NewVisibility() *Visibility {
	return &Visibility{
		declaringEntity: map[string]string{},
		private:         map[string]bool{},
	}
}

// Declare records that member belongs to entity and is private when
// isPrivate is true.
func (v *Visibility) Declare(entity, member string, isPrivate bool) {
	key := entity + "." + member
	v.declaringEntity[key] = entity
	v.private[key] = isPrivate
}

// CheckAccess returns a V3000 diagnostic if accessingEntity may not read
// member on entity, or nil if the access is allowed.
func (v *Visibility) CheckAccess(entity, member, accessingEntity string, loc source.Loc) *source.Diag {
	key := entity + "." + member
	if !v.private[key] {
		return nil
	}
	if accessingEntity == entity {
		return nil
	}
	d := source.Errorf(DiagPrivateMemberAccess, source.Range{Start: loc, End: loc},
		"%q is a private member of %q and cannot be accessed from %q", member, entity, accessingEntity)
	return &d
}
