package experiments

func init() {
	MustRegister("dbsr_grayscale", Networks(
		NetworkParam{Module: "dbsr", Parameter: "denoise_grayscale", DisplayName: "DBSR", BurstSize: 8},
	))
	MustRegister("dbsr_color", Networks(
		NetworkParam{Module: "dbsr", Parameter: "denoise_color", DisplayName: "DBSR", BurstSize: 8},
	))
}
