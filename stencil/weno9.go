package stencil

// WENO9 is the ninth-order scheme: five sub-stencils of five samples
var WENO9 = &WENO{
	name:    "weno9",
	n:       5,
	epsilon: 1.0e-10,
	d:       []float64{1.0 / 126, 10.0 / 63, 10.0 / 21, 20.0 / 63, 5.0 / 126},
	recon: [][]float64{
		{1.0 / 5, -21.0 / 20, 137.0 / 60, -163.0 / 60, 137.0 / 60},
		{-1.0 / 20, 17.0 / 60, -43.0 / 60, 77.0 / 60, 1.0 / 5},
		{1.0 / 30, -13.0 / 60, 47.0 / 60, 9.0 / 20, -1.0 / 20},
		{-1.0 / 20, 9.0 / 20, 47.0 / 60, -13.0 / 60, 1.0 / 30},
		{1.0 / 5, 77.0 / 60, -43.0 / 60, 17.0 / 60, -1.0 / 20},
	},
	beta: [][][]float64{
		{
			{11329.0 / 2520, -208501.0 / 5040, 121621.0 / 1680, -288007.0 / 5040, 86329.0 / 5040},
			{482963.0 / 5040, -142033.0 / 420, 679229.0 / 2520, -411487.0 / 5040},
			{507131.0 / 1680, -68391.0 / 140, 252941.0 / 1680},
			{1020563.0 / 5040, -649501.0 / 5040},
			{53959.0 / 2520},
		},
		{
			{1727.0 / 1260, -60871.0 / 5040, 33071.0 / 1680, -70237.0 / 5040, 18079.0 / 5040},
			{138563.0 / 5040, -3229.0 / 35, 168509.0 / 2520, -88297.0 / 5040},
			{135431.0 / 1680, -25499.0 / 210, 55051.0 / 1680},
			{242723.0 / 5040, -140251.0 / 5040},
			{11329.0 / 2520},
		},
		{
			{1727.0 / 1260, -51001.0 / 5040, 7547.0 / 560, -38947.0 / 5040, 8209.0 / 5040},
			{104963.0 / 5040, -24923.0 / 420, 89549.0 / 2520, -38947.0 / 5040},
			{77051.0 / 1680, -24923.0 / 420, 7547.0 / 560},
			{104963.0 / 5040, -51001.0 / 5040},
			{1727.0 / 1260},
		},
		{
			{11329.0 / 2520, -140251.0 / 5040, 55051.0 / 1680, -88297.0 / 5040, 18079.0 / 5040},
			{242723.0 / 5040, -25499.0 / 210, 168509.0 / 2520, -70237.0 / 5040},
			{135431.0 / 1680, -3229.0 / 35, 33071.0 / 1680},
			{138563.0 / 5040, -60871.0 / 5040},
			{1727.0 / 1260},
		},
		{
			{53959.0 / 2520, -649501.0 / 5040, 252941.0 / 1680, -411487.0 / 5040, 86329.0 / 5040},
			{1020563.0 / 5040, -68391.0 / 140, 679229.0 / 2520, -288007.0 / 5040},
			{507131.0 / 1680, -142033.0 / 420, 121621.0 / 1680},
			{482963.0 / 5040, -208501.0 / 5040},
			{11329.0 / 2520},
		},
	},
}
