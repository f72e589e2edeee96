package stencil

// WENO5 is the classic fifth-order scheme of Jiang and Shu
var WENO5 = &WENO{
	name:    "weno5",
	n:       3,
	epsilon: 1.0e-6,
	d:       []float64{1.0 / 10, 3.0 / 5, 3.0 / 10},
	recon: [][]float64{
		{1.0 / 3, -7.0 / 6, 11.0 / 6},
		{-1.0 / 6, 5.0 / 6, 1.0 / 3},
		{1.0 / 3, 5.0 / 6, -1.0 / 6},
	},
	beta: [][][]float64{
		{
			{4.0 / 3, -19.0 / 3, 11.0 / 3},
			{25.0 / 3, -31.0 / 3},
			{10.0 / 3},
		},
		{
			{4.0 / 3, -13.0 / 3, 5.0 / 3},
			{13.0 / 3, -13.0 / 3},
			{4.0 / 3},
		},
		{
			{10.0 / 3, -31.0 / 3, 11.0 / 3},
			{25.0 / 3, -19.0 / 3},
			{4.0 / 3},
		},
	},
}
