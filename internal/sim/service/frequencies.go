package service

// Frequencies is the cadence, in ticks, of each service. Zero disables a service.
type Frequencies struct {
	DecayToBaseline       uint64 `yaml:"decay_to_baseline" json:"decay_to_baseline"`
	RunningLogPurge       uint64 `yaml:"running_log_purge" json:"running_log_purge"`
	WritableStateNoise    uint64 `yaml:"writable_state_noise" json:"writable_state_noise"`
	CpuExecution          uint64 `yaml:"cpu_execution" json:"cpu_execution"`
	BirthSetup            uint64 `yaml:"birth_setup" json:"birth_setup"`
	CellAge               uint64 `yaml:"cell_age" json:"cell_age"`
	CollectiveHarvesting  uint64 `yaml:"collective_harvesting" json:"collective_harvesting"`
	ConduitFlush          uint64 `yaml:"conduit_flush" json:"conduit_flush"`
	EventLaunching        uint64 `yaml:"event_launching" json:"event_launching"`
	InterMessageLaunching uint64 `yaml:"inter_message_launching" json:"inter_message_launching"`
	InterMessagePurging   uint64 `yaml:"inter_message_purging" json:"inter_message_purging"`
	IntraMessageLaunching uint64 `yaml:"intra_message_launching" json:"intra_message_launching"`
	MessageCounterClear   uint64 `yaml:"message_counter_clear" json:"message_counter_clear"`
	QuorumCap             uint64 `yaml:"quorum_cap" json:"quorum_cap"`
	Quorum                uint64 `yaml:"quorum" json:"quorum"`
	ResourceDecay         uint64 `yaml:"resource_decay" json:"resource_decay"`
	ResourceHarvesting    uint64 `yaml:"resource_harvesting" json:"resource_harvesting"`
	ResourceReceiving     uint64 `yaml:"resource_receiving" json:"resource_receiving"`
	ResourceSending       uint64 `yaml:"resource_sending" json:"resource_sending"`
	SpawnSending          uint64 `yaml:"spawn_sending" json:"spawn_sending"`
	StateInputJump        uint64 `yaml:"state_input_jump" json:"state_input_jump"`
	StateOutputPut        uint64 `yaml:"state_output_put" json:"state_output_put"`
	EpochAdvance          uint64 `yaml:"epoch_advance" json:"epoch_advance"`
	CellDeath             uint64 `yaml:"cell_death" json:"cell_death"`
	Apoptosis             uint64 `yaml:"apoptosis" json:"apoptosis"`
}

// DefaultFrequencies runs everything every tick except environment triggers
// and message counter clears, which run every 8.
func DefaultFrequencies() Frequencies {
	return Frequencies{
		DecayToBaseline:       1,
		RunningLogPurge:       1,
		WritableStateNoise:    1,
		CpuExecution:          1,
		BirthSetup:            1,
		CellAge:               1,
		CollectiveHarvesting:  1,
		ConduitFlush:          1,
		EventLaunching:        8,
		InterMessageLaunching: 1,
		InterMessagePurging:   1,
		IntraMessageLaunching: 1,
		MessageCounterClear:   8,
		QuorumCap:             1,
		Quorum:                1,
		ResourceDecay:         1,
		ResourceHarvesting:    1,
		ResourceReceiving:     1,
		ResourceSending:       1,
		SpawnSending:          1,
		StateInputJump:        1,
		StateOutputPut:        1,
		EpochAdvance:          1,
		CellDeath:             1,
		Apoptosis:             1,
	}
}
