package pxnft

// PXNFT contract fragment consumed by the gateway. The full contract lives
// on-chain; only these entries are called or watched.
const contractABI = `[
  {"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getColor","stateMutability":"view","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"getMintedPixelsInRange","stateMutability":"view","inputs":[{"name":"startX","type":"uint256"},{"name":"startY","type":"uint256"},{"name":"endX","type":"uint256"},{"name":"endY","type":"uint256"}],"outputs":[{"name":"tokenIds","type":"uint256[]"},{"name":"owners","type":"address[]"},{"name":"colors","type":"string[]"}]},
  {"type":"function","name":"totalMinted","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"calculateUpdateFee","stateMutability":"view","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"updater","type":"address"}],"outputs":[{"name":"fee","type":"uint256"},{"name":"requiresFee","type":"bool"}]},
  {"type":"function","name":"calculateBatchUpdateFee","stateMutability":"view","inputs":[{"name":"xCoords","type":"uint256[]"},{"name":"yCoords","type":"uint256[]"},{"name":"updater","type":"address"}],"outputs":[{"name":"totalFee","type":"uint256"},{"name":"unauthorizedCount","type":"uint256"}]},
  {"type":"function","name":"isPixelAuthorized","stateMutability":"view","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"hasExemption","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getPixelApprovalCount","stateMutability":"view","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getPixelApprovedAddressesList","stateMutability":"view","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"}],"outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getOwnedPixelsInArea","stateMutability":"view","inputs":[{"name":"startX","type":"uint256"},{"name":"startY","type":"uint256"},{"name":"endX","type":"uint256"},{"name":"endY","type":"uint256"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256[]"}]},
  {"type":"function","name":"mint","stateMutability":"payable","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"color","type":"string"}],"outputs":[]},
  {"type":"function","name":"batchMint","stateMutability":"payable","inputs":[{"name":"xCoords","type":"uint256[]"},{"name":"yCoords","type":"uint256[]"},{"name":"colors","type":"string[]"}],"outputs":[]},
  {"type":"function","name":"updateColor","stateMutability":"payable","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"color","type":"string"}],"outputs":[]},
  {"type":"function","name":"batchUpdateColor","stateMutability":"payable","inputs":[{"name":"xCoords","type":"uint256[]"},{"name":"yCoords","type":"uint256[]"},{"name":"colors","type":"string[]"}],"outputs":[]},
  {"type":"function","name":"composePixels","stateMutability":"nonpayable","inputs":[{"name":"startX","type":"uint256"},{"name":"startY","type":"uint256"},{"name":"endX","type":"uint256"},{"name":"endY","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"decomposePixels","stateMutability":"nonpayable","inputs":[{"name":"compositeId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"approvePixelMulti","stateMutability":"nonpayable","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"operator","type":"address"}],"outputs":[]},
  {"type":"function","name":"batchApprovePixelMulti","stateMutability":"nonpayable","inputs":[{"name":"xCoords","type":"uint256[]"},{"name":"yCoords","type":"uint256[]"},{"name":"operators","type":"address[]"}],"outputs":[]},
  {"type":"function","name":"revokePixelMulti","stateMutability":"nonpayable","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256"},{"name":"operator","type":"address"}],"outputs":[]},
  {"type":"function","name":"batchRevokePixelMulti","stateMutability":"nonpayable","inputs":[{"name":"xCoords","type":"uint256[]"},{"name":"yCoords","type":"uint256[]"},{"name":"operators","type":"address[]"}],"outputs":[]},
  {"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false},
  {"type":"event","name":"ColorUpdated","inputs":[{"name":"tokenId","type":"uint256","indexed":true},{"name":"x","type":"uint256","indexed":false},{"name":"y","type":"uint256","indexed":false},{"name":"color","type":"string","indexed":false},{"name":"owner","type":"address","indexed":false}],"anonymous":false}
]`
