package interfaceblock

import "fmt"

// Description selects which representation of the interface a buffer holds
type Description uint8

const (
	Levelset Description = iota
	VolumeFraction
	NumDescriptions = 2
)

func (d Description) String() string {
	switch d {
	case Levelset:
		return "Levelset"
	case VolumeFraction:
		return "VolumeFraction"
	default:
		return fmt.Sprintf("Description(%d)", uint8(d))
	}
}

// Role selects which stage of the solve a description buffer belongs to
type Role uint8

const (
	Base          Role = iota // canonical current value
	RightHandSide             // mid-stage integrator output
	Reinitialized             // output of a reinitialization sweep
	Initial                   // write-once snapshot for restart/output
	NumRoles      = 4
)

func (r Role) String() string {
	switch r {
	case Base:
		return "Base"
	case RightHandSide:
		return "RightHandSide"
	case Reinitialized:
		return "Reinitialized"
	case Initial:
		return "Initial"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// State identifies an interface state quantity
type State uint8

const (
	Velocity State = iota
	PressurePositive
	PressureNegative
	NumStates = 3
)

func (s State) String() string {
	switch s {
	case Velocity:
		return "Velocity"
	case PressurePositive:
		return "PressurePositive"
	case PressureNegative:
		return "PressureNegative"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Parameter identifies an interface parameter, only stored when the
// interface parameter model is enabled
type Parameter uint8

const (
	SurfaceTensionCoefficient Parameter = iota
	NumParameters             = 1
)

func (p Parameter) String() string {
	switch p {
	case SurfaceTensionCoefficient:
		return "SurfaceTensionCoefficient"
	default:
		return fmt.Sprintf("Parameter(%d)", uint8(p))
	}
}

// BufferID flattens every (role, description), state and parameter into one
// enumeration. Description ids are role-major: id = role*NumDescriptions + d.
type BufferID uint8

const (
	LevelsetBase BufferID = iota
	VolumeFractionBase
	LevelsetRightHandSide
	VolumeFractionRightHandSide
	LevelsetReinitialized
	VolumeFractionReinitialized
	LevelsetInitial
	VolumeFractionInitial
	StateVelocity
	StatePressurePositive
	StatePressureNegative
	ParameterSurfaceTensionCoefficient
	NumBufferIDs = 12
)

const (
	firstStateID     = BufferID(NumRoles * NumDescriptions)
	firstParameterID = firstStateID + NumStates
)

// DescriptionID returns the flattened id of a (role, description) pair
func DescriptionID(r Role, d Description) BufferID {
	return BufferID(int(r)*NumDescriptions + int(d))
}

// StateID returns the flattened id of a state
func StateID(s State) BufferID {
	return firstStateID + BufferID(s)
}

// ParameterID returns the flattened id of a parameter
func ParameterID(p Parameter) BufferID {
	return firstParameterID + BufferID(p)
}

// IsDescription unpacks a description id
func (id BufferID) IsDescription() (Role, Description, bool) {
	if id >= firstStateID {
		return 0, 0, false
	}
	return Role(id / NumDescriptions), Description(id % NumDescriptions), true
}

// IsState unpacks a state id
func (id BufferID) IsState() (State, bool) {
	if id < firstStateID || id >= firstParameterID {
		return 0, false
	}
	return State(id - firstStateID), true
}

// IsParameter unpacks a parameter id
func (id BufferID) IsParameter() (Parameter, bool) {
	if id < firstParameterID || id >= NumBufferIDs {
		return 0, false
	}
	return Parameter(id - firstParameterID), true
}

func (id BufferID) String() string {
	if r, d, ok := id.IsDescription(); ok {
		return d.String() + r.String()
	}
	if s, ok := id.IsState(); ok {
		return "State" + s.String()
	}
	if p, ok := id.IsParameter(); ok {
		return "Parameter" + p.String()
	}
	return fmt.Sprintf("BufferID(%d)", uint8(id))
}
