package forest

// WeightsFor exposes the class weight computation to the external tests.
var WeightsFor = weightsFor
