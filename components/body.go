package components

// Body holds the physical properties of a box.
// Static bodies have zero inverse mass and inertia and never integrate.
type Body struct {
	HalfW, HalfH float64
	InvMass      float64
	InvInertia   float64
	Static       bool
}

// NewDynamicBody returns a box body of the given size and area density.
func NewDynamicBody(width, height, density float64) Body {
	mass := density * width * height
	inertia := mass * (width*width + height*height) / 12
	return Body{
		HalfW:      width / 2,
		HalfH:      height / 2,
		InvMass:    1 / mass,
		InvInertia: 1 / inertia,
	}
}

// NewStaticBody returns an immovable box body.
func NewStaticBody(width, height float64) Body {
	return Body{HalfW: width / 2, HalfH: height / 2, Static: true}
}

// Collider controls which pairs are resolved.
type Collider struct {
	ID        uint32 // backend body ID; 0 for walls
	Contained bool   // collides with static walls
}

// Grab is a pointer constraint target attached to a body.
type Grab struct {
	Active         bool
	TargetX        float64
	TargetY        float64
	LocalX, LocalY float64 // grab point in body-local coordinates
}
