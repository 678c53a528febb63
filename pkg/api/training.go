package api

// Hyperparameters are handed to the fitter unchanged. Field names follow the
// transformers TrainingArguments they configure.
type Hyperparameters struct {
	NumTrainEpochs            float64 `json:"num_train_epochs" env:"EPOCHS" envDefault:"3"`
	PerDeviceTrainBatchSize   int     `json:"per_device_train_batch_size" env:"TRAIN_BATCH_SIZE" envDefault:"16"`
	PerDeviceEvalBatchSize    int     `json:"per_device_eval_batch_size" env:"EVAL_BATCH_SIZE" envDefault:"16"`
	GradientAccumulationSteps int     `json:"gradient_accumulation_steps" env:"GRADIENT_ACCUMULATION_STEPS" envDefault:"2"`
	LearningRate              float64 `json:"learning_rate" env:"LEARNING_RATE" envDefault:"2e-5"`
	LoggingSteps              int     `json:"logging_steps" env:"LOGGING_STEPS" envDefault:"50"`
	SaveSteps                 int     `json:"save_steps" env:"SAVE_STEPS" envDefault:"500"`
	FP16                      bool    `json:"fp16" env:"FP16" envDefault:"true"`
}

// FitJob describes one optimization run. The fitter must write model weights
// (model.onnx) into OutputDir or into OutputDir/checkpoint-<step>
// subdirectories. Label metadata in every config.json there is overwritten by
// the trainer afterwards.
type FitJob struct {
	BaseModel string            `json:"base_model"`
	NumLabels int               `json:"num_labels"`
	Id2Label  map[string]string `json:"id2label"`
	Label2Id  map[string]int    `json:"label2id"`

	TrainData      string `json:"train_data"`
	ValidationData string `json:"validation_data"`
	OutputDir      string `json:"output_dir"`
	WorkDir        string `json:"work_dir"`

	Hyperparameters Hyperparameters `json:"hyperparameters"`
}

type FitResponse struct {
	OutputDir string
}

// EncodedExample is one line of the train/validation JSONL shards.
type EncodedExample struct {
	InputIds      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
	Label         int     `json:"label"`
}
