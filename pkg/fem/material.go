package fem

import "gonum.org/v1/gonum/mat"

// Material yields a 6x6 stiffness matrix in Voigt order
// (xx, yy, zz, xy, yz, zx) with engineering shear strains.
type Material interface {
	CMatrix() *mat.Dense
}

// Isotropic is a material defined by Young's modulus and Poisson's
// ratio.
type Isotropic struct {
	E  float64
	Nu float64
}

// CMatrix returns the classical Lame-form stiffness. Shear diagonal
// entries equal E/(2(1+nu)).
func (m Isotropic) CMatrix() *mat.Dense {
	factor := m.E / ((1 + m.Nu) * (1 - 2*m.Nu))
	c1 := (1 - m.Nu) * factor
	c2 := m.Nu * factor
	c3 := (1 - 2*m.Nu) / 2 * factor

	c := mat.NewDense(6, 6, nil)
	c.Set(0, 0, c1)
	c.Set(0, 1, c2)
	c.Set(0, 2, c2)
	c.Set(1, 0, c2)
	c.Set(1, 1, c1)
	c.Set(1, 2, c2)
	c.Set(2, 0, c2)
	c.Set(2, 1, c2)
	c.Set(2, 2, c1)
	c.Set(3, 3, c3)
	c.Set(4, 4, c3)
	c.Set(5, 5, c3)
	return c
}

// Orthotropic is a material defined by nine engineering constants.
// Poisson's ratios are the majors: NuXY is the strain in y from stress
// in x.
type Orthotropic struct {
	Ex, Ey, Ez    float64
	NuXY          float64
	NuYZ          float64
	NuXZ          float64
	GXY, GYZ, GZX float64
}

// TransverselyIsotropic derives an orthotropic set with z as the axis
// of symmetry, the usual model for a layered (printed or laminated)
// part: the xy fill plane is isotropic, the layer direction is weak.
// The in-plane shear modulus is dependent: Gxy = Efill/(2(1+NuFill)).
func TransverselyIsotropic(eFill, eLayer, nuFill, nuLayer, gLayer float64) Orthotropic {
	gFill := eFill / (2 * (1 + nuFill))
	return Orthotropic{
		Ex:   eFill,
		Ey:   eFill,
		Ez:   eLayer,
		NuXY: nuFill,
		NuYZ: nuLayer,
		NuXZ: nuLayer,
		GXY:  gFill,
		GYZ:  gLayer,
		GZX:  gLayer,
	}
}

// CMatrix builds the compliance matrix S from the engineering constants
// and inverts it. Building S and inverting is numerically safer than
// assembling C directly. Panics if S is singular: that is a programmer
// error in the material constants, not a runtime condition.
func (m Orthotropic) CMatrix() *mat.Dense {
	s := mat.NewDense(6, 6, nil)

	s.Set(0, 0, 1/m.Ex)
	s.Set(1, 1, 1/m.Ey)
	s.Set(2, 2, 1/m.Ez)

	// Maxwell symmetry: -nu_yx/Ey = -nu_xy/Ex.
	s.Set(0, 1, -m.NuXY/m.Ex)
	s.Set(1, 0, -m.NuXY/m.Ex)
	s.Set(0, 2, -m.NuXZ/m.Ex)
	s.Set(2, 0, -m.NuXZ/m.Ex)
	s.Set(1, 2, -m.NuYZ/m.Ey)
	s.Set(2, 1, -m.NuYZ/m.Ey)

	s.Set(3, 3, 1/m.GXY)
	s.Set(4, 4, 1/m.GYZ)
	s.Set(5, 5, 1/m.GZX)

	c := mat.NewDense(6, 6, nil)
	if err := c.Inverse(s); err != nil {
		panic("fem: orthotropic compliance matrix is singular (check inputs)")
	}
	return c
}
